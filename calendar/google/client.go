// Package google implements the provider client against the Google
// Calendar API. Provider-specific failure signals (410 Gone, invalid
// grant) are translated into the engine's error sentinels here so nothing
// above this package inspects googleapi errors.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/daysync/daysync/internal"
)

// maxPageSize is the API's per-page cap.
const maxPageSize = 250

type Client struct {
	oauthCfg *oauth2.Config
	logger   *slog.Logger
}

// NewClient builds a client from the OAuth application credentials JSON
// downloaded from the provider console.
func NewClient(credJSON []byte, logger *slog.Logger) (*Client, error) {
	oauthCfg, err := google.ConfigFromJSON(credJSON, calendar.CalendarEventsScope, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("google: parsing credentials file: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{oauthCfg: oauthCfg, logger: logger}, nil
}

func (c *Client) Calendars(ctx context.Context, acc *internal.Account) ([]internal.CalendarInfo, error) {
	svc, err := c.service(ctx, acc)
	if err != nil {
		return nil, err
	}

	list, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, translateError(err)
	}

	cals := make([]internal.CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		cals = append(cals, internal.CalendarInfo{
			ID:      item.Id,
			Name:    item.Summary,
			Primary: item.Primary,
		})
	}
	return cals, nil
}

// ListEvents fetches one page. Pagination is driven by the caller; upserts
// for a page must land before the next page is requested.
func (c *Client) ListEvents(ctx context.Context, acc *internal.Account, calendarID string, q internal.EventQuery) (*internal.EventPage, error) {
	svc, err := c.service(ctx, acc)
	if err != nil {
		return nil, err
	}

	call := svc.Events.List(calendarID).
		Context(ctx).
		SingleEvents(true).
		MaxResults(maxPageSize)
	if q.ResumeToken != "" {
		call = call.SyncToken(q.ResumeToken)
	} else {
		call = call.ShowDeleted(false).
			TimeMin(q.TimeMin.Format(time.RFC3339)).
			TimeMax(q.TimeMax.Format(time.RFC3339))
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	events, err := call.Do()
	if err != nil {
		return nil, translateError(err)
	}

	page := &internal.EventPage{
		NextPageToken:   events.NextPageToken,
		NextResumeToken: events.NextSyncToken,
	}
	for _, item := range events.Items {
		page.Items = append(page.Items, newEvent(item))
	}
	return page, nil
}

func (c *Client) InsertEvent(ctx context.Context, acc *internal.Account, calendarID string, ev *internal.ProviderEvent) (string, error) {
	svc, err := c.service(ctx, acc)
	if err != nil {
		return "", err
	}

	created, err := svc.Events.Insert(calendarID, newGoogleEvent(ev)).Context(ctx).Do()
	if err != nil {
		return "", translateError(err)
	}
	c.logger.Debug("event inserted", "calendar_id", calendarID, "event_id", created.Id)
	return created.Id, nil
}

// RefreshToken exchanges a refresh token for a fresh credential. An
// invalid-grant response means the user revoked access; that comes back as
// ErrTokenInvalid so callers prompt for reconnection.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*internal.Credential, error) {
	src := c.oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, translateError(err)
	}

	cred := &internal.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		cred.Scope = scope
	}
	return cred, nil
}

func (c *Client) service(ctx context.Context, acc *internal.Account) (*calendar.Service, error) {
	tok := &oauth2.Token{
		AccessToken:  acc.Credential.AccessToken,
		RefreshToken: acc.Credential.RefreshToken,
		Expiry:       acc.Credential.Expiry,
		TokenType:    "Bearer",
	}
	httpClient := c.oauthCfg.Client(ctx, tok)
	return calendar.NewService(ctx, option.WithHTTPClient(httpClient))
}

func newEvent(item *calendar.Event) *internal.ProviderEvent {
	ev := &internal.ProviderEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		EventType:   item.EventType,
		Status:      item.Status,
	}
	if item.Start == nil {
		return ev
	}
	if item.Start.Date != "" {
		if d, err := time.ParseInLocation("2006-01-02", item.Start.Date, time.Local); err == nil {
			// All-day events are materialized at local noon, the storage
			// convention that keeps dates stable across timezones.
			ev.StartsAt = time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.Local)
			ev.AllDay = true
			ev.HasStart = true
		}
		return ev
	}
	if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
		ev.StartsAt = t
		ev.HasStart = true
	}
	return ev
}

func newGoogleEvent(ev *internal.ProviderEvent) *calendar.Event {
	body := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Reminders: &calendar.EventReminders{
			UseDefault:      true,
			ForceSendFields: []string{"UseDefault"},
		},
	}
	if ev.AllDay {
		day := ev.StartsAt.Format("2006-01-02")
		next := ev.StartsAt.AddDate(0, 0, 1).Format("2006-01-02")
		body.Start = &calendar.EventDateTime{Date: day}
		body.End = &calendar.EventDateTime{Date: next}
	} else {
		body.Start = &calendar.EventDateTime{DateTime: ev.StartsAt.Format(time.RFC3339)}
		body.End = &calendar.EventDateTime{DateTime: ev.StartsAt.Add(time.Hour).Format(time.RFC3339)}
	}
	if ev.RecurYearly {
		body.Recurrence = []string{"RRULE:FREQ=YEARLY"}
	}
	return body
}

func translateError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch gErr.Code {
		case http.StatusGone:
			return fmt.Errorf("google: %v: %w", gErr.Message, internal.ErrResumeTokenExpired)
		case http.StatusUnauthorized:
			return fmt.Errorf("google: %v: %w", gErr.Message, internal.ErrTokenInvalid)
		}
		return err
	}

	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.ErrorCode == "invalid_grant" {
		return fmt.Errorf("google: refresh rejected: %w", internal.ErrTokenInvalid)
	}
	return err
}
