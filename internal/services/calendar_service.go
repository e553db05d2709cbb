package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"skillchat/internal/config"
	"skillchat/internal/models"
	"skillchat/internal/security"
	"skillchat/internal/slots"
)

const calendarScope = "https://www.googleapis.com/auth/calendar"

// CalendarService manages the Google Calendar credential lifecycle
// (authorize, exchange, refresh) and creates events with a valid token.
//
// The lifecycle is Unauthorized -> Authorized -> Expired -> Authorized
// (refreshed); ValidAccessToken is the single point where staleness is
// resolved, so callers never inspect expiry themselves.
type CalendarService struct {
	clientID     string
	clientSecret string
	redirectURI  string

	states      *security.StateSigner
	credentials *CredentialService
	httpClient  *http.Client
	limiter     *rate.Limiter
	metrics     *Metrics

	// Endpoint overrides for tests; defaults point at Google.
	AuthBaseURL string
	TokenURL    string
	EventsURL   string
}

// NewCalendarService creates a calendar service. metrics may be nil.
func NewCalendarService(cfg *config.Config, credentials *CredentialService, metrics *Metrics) *CalendarService {
	return &CalendarService{
		clientID:     cfg.GoogleClientID,
		clientSecret: cfg.GoogleClientSecret,
		redirectURI:  cfg.GoogleRedirectURI,
		states:       security.NewStateSigner(cfg.JWTSecret),
		credentials:  credentials,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		// Google's calendar API default quota is 10 qps per user; stay
		// politely below it.
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		metrics: metrics,

		AuthBaseURL: "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:    "https://oauth2.googleapis.com/token",
		EventsURL:   "https://www.googleapis.com/calendar/v3/calendars/primary/events",
	}
}

// AuthorizationURL builds the provider authorization URL for a user. The
// signed user identity rides along as the CSRF state parameter. Idempotent
// and side-effect-free: calling it never mutates any store.
func (s *CalendarService) AuthorizationURL(userID string) string {
	params := url.Values{
		"client_id":     {s.clientID},
		"redirect_uri":  {s.redirectURI},
		"response_type": {"code"},
		"scope":         {calendarScope},
		"access_type":   {"offline"},
		"state":         {s.states.StateForUser(userID)},
		"prompt":        {"consent"},
	}
	return s.AuthBaseURL + "?" + params.Encode()
}

// UserFromState verifies a callback state signature and returns the user
// the authorization flow was started for.
func (s *CalendarService) UserFromState(state string) (string, error) {
	return s.states.UserFromState(state)
}

// CompleteAuthorization validates the callback state against the expected
// user, exchanges the authorization code for a token pair, and persists
// the credential record.
func (s *CalendarService) CompleteAuthorization(ctx context.Context, code, state, expectedUserID string) error {
	if err := s.states.ValidateState(state, expectedUserID); err != nil {
		return err
	}

	token, err := s.exchange(ctx, url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {s.redirectURI},
	})
	if err != nil {
		return err
	}

	cred := &models.CalendarCredential{
		UserID:       expectedUserID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(token.ExpiresIn) * time.Second),
	}

	return s.credentials.WithUserLock(expectedUserID, func() error {
		return s.credentials.Upsert(ctx, cred)
	})
}

// IsConnected reports whether a credential record exists, regardless of
// expiry.
func (s *CalendarService) IsConnected(ctx context.Context, userID string) (bool, error) {
	return s.credentials.Exists(ctx, userID)
}

// ValidAccessToken returns an access token that is not past its recorded
// expiry, refreshing transparently when necessary. The load/check/refresh
// sequence runs under the user's credential lock, so concurrent calls for
// one user perform at most one refresh exchange.
func (s *CalendarService) ValidAccessToken(ctx context.Context, userID string) (string, error) {
	var accessToken string
	err := s.credentials.WithUserLock(userID, func() error {
		cred, err := s.credentials.Get(ctx, userID)
		if err != nil {
			return err
		}
		if !cred.Expired(time.Now()) {
			accessToken = cred.AccessToken
			return nil
		}

		refreshed, err := s.refreshLocked(ctx, cred)
		if err != nil {
			return err
		}
		accessToken = refreshed.AccessToken
		return nil
	})
	return accessToken, err
}

// RefreshIfExpiringWithin refreshes the user's credential when it expires
// inside the window. Used by the proactive refresh job to keep interactive
// requests off the refresh path.
func (s *CalendarService) RefreshIfExpiringWithin(ctx context.Context, userID string, window time.Duration) error {
	return s.credentials.WithUserLock(userID, func() error {
		cred, err := s.credentials.Get(ctx, userID)
		if err != nil {
			return err
		}
		if time.Now().Add(window).Before(cred.ExpiresAt) {
			return nil
		}
		_, err = s.refreshLocked(ctx, cred)
		return err
	})
}

// refreshLocked performs the refresh exchange and persists the new triple.
// Google may omit refresh_token from a refresh response; the stored one is
// reused in that case. Caller must hold the user's credential lock.
func (s *CalendarService) refreshLocked(ctx context.Context, cred *models.CalendarCredential) (*models.CalendarCredential, error) {
	token, err := s.exchange(ctx, url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"refresh_token": {cred.RefreshToken},
		"grant_type":    {"refresh_token"},
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		}
		return nil, err
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}

	refreshed := &models.CalendarCredential{
		UserID:       cred.UserID,
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(token.ExpiresIn) * time.Second),
	}

	if err := s.credentials.Upsert(ctx, refreshed); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TokenRefreshes.WithLabelValues("success").Inc()
	}
	log.Printf("🔄 [CALENDAR] Refreshed access token for user %s", cred.UserID)

	return refreshed, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// exchange POSTs a form to the token endpoint and decodes the response.
func (s *CalendarService) exchange(ctx context.Context, params url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.TokenURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrTokenExchangeFailed, resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", ErrTokenExchangeFailed, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: response missing access_token", ErrTokenExchangeFailed)
	}
	return &token, nil
}

// CreateEvent creates a calendar event from heuristic slots. The slots are
// hints: the concrete start/end are resolved deterministically here
// (default duration one hour, UTC).
func (s *CalendarService) CreateEvent(ctx context.Context, accessToken string, ev slots.EventSlots) (*models.CalendarEvent, error) {
	start, end := resolveEventTime(ev, time.Now().UTC())

	payload := map[string]any{
		"summary": ev.Title,
		"start": map[string]string{
			"dateTime": start.Format(time.RFC3339),
			"timeZone": "UTC",
		},
		"end": map[string]string{
			"dateTime": end.Format(time.RFC3339),
			"timeZone": "UTC",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderAPI, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderAPI, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.EventsURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderAPI, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderAPI, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d: %s", ErrAuthRequired, resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderAPI, resp.StatusCode, string(respBody))
	}

	var created struct {
		ID       string `json:"id"`
		HTMLLink string `json:"htmlLink"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", ErrProviderAPI, err)
	}

	if s.metrics != nil {
		s.metrics.CalendarEvents.Inc()
	}
	log.Printf("📅 [CALENDAR] Created event %s (%q)", created.ID, ev.Title)

	return &models.CalendarEvent{
		ID:       created.ID,
		Title:    ev.Title,
		Date:     ev.Date,
		Time:     ev.Time,
		HTMLLink: created.HTMLLink,
	}, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// resolveEventTime turns hint slots into a concrete start/end pair.
// Unrecognized or absent hints leave the corresponding component at "now";
// the event always lasts one hour.
func resolveEventTime(ev slots.EventSlots, now time.Time) (time.Time, time.Time) {
	start := now

	date := strings.ToLower(ev.Date)
	switch {
	case strings.Contains(date, "tomorrow"):
		start = start.AddDate(0, 0, 1)
	default:
		for name, weekday := range weekdays {
			if strings.Contains(date, name) {
				days := int(weekday-start.Weekday()+7) % 7
				if days == 0 {
					days = 7
				}
				start = start.AddDate(0, 0, days)
				break
			}
		}
	}

	if hour, minute, ok := parseClock(ev.Time); ok {
		start = time.Date(start.Year(), start.Month(), start.Day(), hour, minute, 0, 0, time.UTC)
	}

	return start, start.Add(time.Hour)
}

// parseClock parses "3pm", "9:30 am", "at 14:30" style hints.
func parseClock(hint string) (hour, minute int, ok bool) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return 0, 0, false
	}

	digits := ""
	rest := ""
	for i, r := range hint {
		if r >= '0' && r <= '9' {
			digits = ""
			for j := i; j < len(hint); j++ {
				c := hint[j]
				if (c >= '0' && c <= '9') || c == ':' {
					digits += string(c)
					continue
				}
				break
			}
			rest = hint[i+len(digits):]
			break
		}
	}
	if digits == "" {
		return 0, 0, false
	}

	parts := strings.SplitN(digits, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour > 23 {
		return 0, 0, false
	}
	if len(parts) == 2 {
		minute, err = strconv.Atoi(parts[1])
		if err != nil || minute > 59 {
			return 0, 0, false
		}
	}

	if strings.Contains(rest, "pm") && hour < 12 {
		hour += 12
	}
	if strings.Contains(rest, "am") && hour == 12 {
		hour = 0
	}

	return hour, minute, true
}
