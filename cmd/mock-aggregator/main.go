package main

import (
	"context"
	"encoding/base64"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// mockSendRequest mirrors what httpapi.Client posts to /sms/send.
type mockSendRequest struct {
	SourceAddr string `json:"source_addr"`
	Message    string `json:"message"`
	Recipients []struct {
		RecipientID string `json:"recipient_id"`
		DestAddr    string `json:"dest_addr"`
	} `json:"recipients"`
}

type mockSendResponse struct {
	RequestID string `json:"request_id"`
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	addr := getenv("HTTP_ADDR", ":9090")
	apiKey := getenv("API_KEY", "axis-test")
	apiSecret := getenv("API_SECRET", "axis-secret")
	failRate, _ := strconv.ParseFloat(getenv("FAIL_RATE", "0"), 64)

	fiberApp := fiber.New(fiber.Config{AppName: "mock-aggregator"})

	// POST /sms/send accepts a whole batch and echoes a request id,
	// or rejects the batch as a unit when the coin flip says so.
	fiberApp.Post("/sms/send", func(c *fiber.Ctx) error {
		if !checkBasicAuth(c.Get("Authorization"), apiKey, apiSecret) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid credentials"})
		}

		var req mockSendRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid body"})
		}
		if req.SourceAddr == "" || req.Message == "" || len(req.Recipients) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "source_addr, message and recipients are required"})
		}

		if failRate > 0 && rand.Float64() < failRate {
			log.Info("mock aggregator rejecting batch", "recipients", len(req.Recipients))
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": "insufficient balance"})
		}

		requestID := uuid.New().String()
		log.Info("mock aggregator accepted batch",
			"source_addr", req.SourceAddr,
			"recipients", len(req.Recipients),
			"request_id", requestID,
		)
		return c.Status(fiber.StatusOK).JSON(mockSendResponse{RequestID: requestID})
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("mock-aggregator listening", "addr", addr, "fail_rate", failRate)
		if err := fiberApp.Listen(addr); err != nil {
			log.Error("fiber listen", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down mock-aggregator")
	_ = fiberApp.Shutdown()
}

func checkBasicAuth(header, key, secret string) bool {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return false
	}
	return string(raw) == key+":"+secret
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
