package main

import (
	"context"
	"errors"
	"testing"

	"github.com/hyredlabs/outreach-console/internal/campaigns"
	appconfig "github.com/hyredlabs/outreach-console/internal/config"
	"github.com/hyredlabs/outreach-console/pkg/logging"
)

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	logger := logging.New("error")
	if pool := connectPostgresPool(context.Background(), "", logger); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestConnectRedisDisabledWithoutAddr(t *testing.T) {
	cfg := &appconfig.Config{}
	if client := connectRedis(cfg); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
}

func TestCampaignLookupReturnsSmartreachID(t *testing.T) {
	repo := campaigns.NewInMemoryRepository()
	c, err := repo.Create(context.Background(), &campaigns.CreateCampaignRequest{Name: "q3", SmartreachID: 42})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	lookup := campaignLookup{repo}
	got, err := lookup.SmartreachID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	if _, err := lookup.SmartreachID(context.Background(), "missing"); !errors.Is(err, campaigns.ErrCampaignNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}
}
