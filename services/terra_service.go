package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"biotwin/config"

	"github.com/apex/log"
	"github.com/go-resty/resty/v2"
)

// Endpoint selects one of the Terra v2 data collections.
type Endpoint string

const (
	EndpointSleep    Endpoint = "sleep"
	EndpointActivity Endpoint = "daily"
)

// DateRange is the argument object the model passes to a biomarker function.
// Empty fields fall back to the client's default range.
type DateRange struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// StatusError is returned when Terra answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("terra: HTTP error, status: %d", e.StatusCode)
}

// BiomarkerClient fetches sleep and activity data for one configured user.
type BiomarkerClient struct {
	client       *resty.Client
	userID       string
	defaultStart string
	defaultEnd   string
}

func NewBiomarkerClient(cfg *config.Config) *BiomarkerClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.TerraBaseURL, "/")).
		SetTimeout(cfg.TerraTimeout).
		SetHeaders(map[string]string{
			"accept":    "application/json",
			"dev-id":    cfg.TerraDevID,
			"x-api-key": cfg.TerraAPIKey,
		})

	return &BiomarkerClient{
		client:       client,
		userID:       cfg.TerraUserID,
		defaultStart: cfg.TerraDefaultStart,
		defaultEnd:   cfg.TerraDefaultEnd,
	}
}

// Resolve fills the missing ends of r with the default range.
func (b *BiomarkerClient) Resolve(r DateRange) DateRange {
	if r.StartDate == "" {
		r.StartDate = b.defaultStart
	}
	if r.EndDate == "" {
		r.EndDate = b.defaultEnd
	}
	return r
}

// Fetch issues GET /v2/{endpoint} and returns the raw JSON body.
func (b *BiomarkerClient) Fetch(ctx context.Context, endpoint Endpoint, r DateRange) (json.RawMessage, error) {
	r = b.Resolve(r)

	log.WithFields(log.Fields{
		"endpoint":   endpoint,
		"start_date": r.StartDate,
		"end_date":   r.EndDate,
	}).Debug("terra.fetch")

	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"user_id":      b.userID,
			"start_date":   r.StartDate,
			"end_date":     r.EndDate,
			"to_webhook":   "false",
			"with_samples": "false",
		}).
		Get("/v2/" + string(endpoint))
	if err != nil {
		return nil, fmt.Errorf("terra %s request failed: %w", endpoint, err)
	}

	if !resp.IsSuccess() {
		return nil, &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	body := resp.Body()
	if !json.Valid(body) {
		return nil, fmt.Errorf("terra %s returned invalid JSON", endpoint)
	}
	return json.RawMessage(body), nil
}

// FetchOrEmpty never fails: any error is logged and reported as no data (nil),
// so the conversation can still be answered without the biomarkers.
func (b *BiomarkerClient) FetchOrEmpty(ctx context.Context, endpoint Endpoint, r DateRange) json.RawMessage {
	data, err := b.Fetch(ctx, endpoint, r)
	if err != nil {
		r = b.Resolve(r)
		log.WithError(err).WithFields(log.Fields{
			"endpoint":   endpoint,
			"start_date": r.StartDate,
			"end_date":   r.EndDate,
		}).Error("terra.fetch.failed")
		return nil
	}
	return data
}

func (b *BiomarkerClient) GetSleep(ctx context.Context, r DateRange) json.RawMessage {
	return b.FetchOrEmpty(ctx, EndpointSleep, r)
}

func (b *BiomarkerClient) GetActivity(ctx context.Context, r DateRange) json.RawMessage {
	return b.FetchOrEmpty(ctx, EndpointActivity, r)
}
