package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/jumbenylon/sakuragroup-sub001/internal/adapters/db/memory"
	"github.com/jumbenylon/sakuragroup-sub001/internal/app"
	"github.com/jumbenylon/sakuragroup-sub001/internal/domain"
	"github.com/jumbenylon/sakuragroup-sub001/internal/ports"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	jobs []ports.DispatchJob
}

func (f *fakePublisher) Publish(_ context.Context, job ports.DispatchJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func newTestApp(t *testing.T) (*fiber.App, *memory.Ledger, *fakePublisher) {
	t.Helper()
	ledger := memory.NewLedger()
	publisher := &fakePublisher{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := app.NewCampaignService(ledger, publisher, log)

	fiberApp := fiber.New()
	NewHandler(svc, log).Register(fiberApp.Group("/api"))
	return fiberApp, ledger, publisher
}

func postJSON(t *testing.T, fiberApp *fiber.App, path string, payload any) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(http.MethodPost, path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := fiberApp.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	return out
}

func validCreatePayload(n int) map[string]any {
	recipients := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		recipients = append(recipients, map[string]any{
			"dest_addr":  fmt.Sprintf("+2557120000%02d", i),
			"attributes": map[string]string{"first_name": "Asha"},
		})
	}
	return map[string]any{
		"tenant_id":  uuid.New().String(),
		"name":       "August promo",
		"body":       "Hi {first_name}",
		"sender_id":  "AXIS",
		"recipients": recipients,
	}
}

func TestCreateCampaignEndpoint(t *testing.T) {
	fiberApp, ledger, _ := newTestApp(t)

	resp := postJSON(t, fiberApp, "/api/campaigns", validCreatePayload(3))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[createCampaignResponse](t, resp)
	assert.Equal(t, string(domain.CampaignQueued), created.Status)
	assert.Equal(t, 3, created.Recipients)

	id, err := uuid.Parse(created.CampaignID)
	require.NoError(t, err)
	stored, err := ledger.Campaign(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "August promo", stored.Name)
}

func TestCreateCampaignValidation(t *testing.T) {
	fiberApp, _, _ := newTestApp(t)

	resp := postJSON(t, fiberApp, "/api/campaigns", map[string]any{"name": "no body"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	payload := validCreatePayload(1)
	payload["tenant_id"] = "not-a-uuid"
	resp = postJSON(t, fiberApp, "/api/campaigns", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	payload = validCreatePayload(1)
	payload["recipients"] = []map[string]any{{"dest_addr": "   "}}
	resp = postJSON(t, fiberApp, "/api/campaigns", payload)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestDispatchEndpointPublishesJob(t *testing.T) {
	fiberApp, _, publisher := newTestApp(t)

	resp := postJSON(t, fiberApp, "/api/campaigns", validCreatePayload(2))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[createCampaignResponse](t, resp)

	resp = postJSON(t, fiberApp, "/api/campaigns/"+created.CampaignID+"/dispatch", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	require.Len(t, publisher.jobs, 1)
	assert.Equal(t, created.CampaignID, publisher.jobs[0].CampaignID.String())
}

func TestDispatchEndpointRejectsTerminalCampaign(t *testing.T) {
	fiberApp, ledger, publisher := newTestApp(t)

	resp := postJSON(t, fiberApp, "/api/campaigns", validCreatePayload(2))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[createCampaignResponse](t, resp)

	id := uuid.MustParse(created.CampaignID)
	require.NoError(t, ledger.UpdateCampaignStatus(context.Background(), id, domain.CampaignComplete))

	resp = postJSON(t, fiberApp, "/api/campaigns/"+created.CampaignID+"/dispatch", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
	assert.Empty(t, publisher.jobs)
}

func TestGetCampaignStats(t *testing.T) {
	fiberApp, _, _ := newTestApp(t)

	resp := postJSON(t, fiberApp, "/api/campaigns", validCreatePayload(4))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[createCampaignResponse](t, resp)

	req, err := http.NewRequest(http.MethodGet, "/api/campaigns/"+created.CampaignID, nil)
	require.NoError(t, err)
	getResp, err := fiberApp.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	stats := decode[campaignStatsResponse](t, getResp)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(4), stats.Counts[string(domain.RecipientPending)])
}

func TestGetCampaignNotFound(t *testing.T) {
	fiberApp, _, _ := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, "/api/campaigns/"+uuid.New().String(), nil)
	require.NoError(t, err)
	resp, err := fiberApp.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestRequeueEndpoint(t *testing.T) {
	fiberApp, ledger, _ := newTestApp(t)

	resp := postJSON(t, fiberApp, "/api/campaigns", validCreatePayload(2))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[createCampaignResponse](t, resp)
	id := uuid.MustParse(created.CampaignID)

	ctx := context.Background()
	rows, err := ledger.NextPending(ctx, id, 10)
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	_, err = ledger.Claim(ctx, ids)
	require.NoError(t, err)
	require.NoError(t, ledger.Resolve(ctx, ids, domain.FailedOutcome("insufficient balance")))
	require.NoError(t, ledger.UpdateCampaignStatus(ctx, id, domain.CampaignPartial))

	resp = postJSON(t, fiberApp, "/api/campaigns/"+created.CampaignID+"/requeue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	requeued := decode[requeueResponse](t, resp)
	assert.Equal(t, int64(2), requeued.Requeued)

	stored, err := ledger.Campaign(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignQueued, stored.Status)
}
