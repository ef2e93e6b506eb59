package domain_test

import (
	"testing"

	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCampaignTransitions(t *testing.T) {
	cases := []struct {
		from, to domain.CampaignStatus
		ok       bool
	}{
		{domain.CampaignDraft, domain.CampaignQueued, true},
		{domain.CampaignQueued, domain.CampaignProcessing, true},
		{domain.CampaignProcessing, domain.CampaignComplete, true},
		{domain.CampaignProcessing, domain.CampaignPartial, true},
		{domain.CampaignPartial, domain.CampaignProcessing, true}, // fresh attempt
		{domain.CampaignPartial, domain.CampaignQueued, true},     // requeue
		{domain.CampaignQueued, domain.CampaignComplete, false},   // may not skip processing
		{domain.CampaignComplete, domain.CampaignProcessing, false},
		{domain.CampaignDraft, domain.CampaignProcessing, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.ok, domain.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestRenderTemplate(t *testing.T) {
	out := domain.RenderTemplate(
		"Hi {first_name}, offer for {dest_addr} ends {deadline}",
		"+255712000001",
		map[string]string{"first_name": "Neema"},
	)
	assert.Equal(t, "Hi Neema, offer for +255712000001 ends {deadline}", out)
}

func TestNormalizeDest(t *testing.T) {
	assert.Equal(t, "+255712000001", domain.NormalizeDest("  +255 712-000.001 "))
	assert.Equal(t, "", domain.NormalizeDest("   "))
}
