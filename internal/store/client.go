package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"studyroom/internal/api"
	"studyroom/internal/booking"
	"studyroom/internal/domain"
)

const defaultUserAgent = "roomctl/0.1"

// Client speaks to the reservation API. It is the client's only view of the
// authoritative store.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	Token     string
	UserAgent string
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: 15 * time.Second},
		BaseURL:   baseURL,
		Token:     token,
		UserAgent: defaultUserAgent,
	}
}

// StatusError is a non-2xx answer that carries no rejection reason.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: %d %s: %s", e.Code, http.StatusText(e.Code), e.Message)
}

type createRequest struct {
	RoomID    int       `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type cancelResponse struct {
	Reservation *domain.Reservation `json:"reservation"`
}

type statusResponse struct {
	RoomID int    `json:"room_id"`
	Status string `json:"status"`
}

// ListActive returns RESERVED reservations for roomID, or for every room when
// roomID is 0.
func (c *Client) ListActive(ctx context.Context, roomID int) ([]domain.Reservation, error) {
	var q url.Values
	if roomID > 0 {
		q = url.Values{"room_id": {strconv.Itoa(roomID)}}
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/reservations/active", q, nil)
	if err != nil {
		return nil, err
	}

	var out []domain.Reservation
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMine(ctx context.Context) ([]domain.Reservation, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/reservations/mine", nil, nil)
	if err != nil {
		return nil, err
	}

	var out []domain.Reservation
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/rooms", nil, nil)
	if err != nil {
		return nil, err
	}

	var rooms []domain.Room
	if err := c.doJSON(req, &rooms); err != nil {
		return nil, err
	}
	for i := range rooms {
		rooms[i].Status = domain.NormalizeRoomStatus(string(rooms[i].Status))
	}
	return rooms, nil
}

// RoomStatus returns the normalised status. Any failure reads as MAINTENANCE so
// callers that ignore the error still refuse to book.
func (c *Client) RoomStatus(ctx context.Context, roomID int) (domain.RoomStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/rooms/"+strconv.Itoa(roomID)+"/status", nil, nil)
	if err != nil {
		return domain.RoomMaintenance, err
	}

	var resp statusResponse
	if err := c.doJSON(req, &resp); err != nil {
		return domain.RoomMaintenance, err
	}
	return domain.NormalizeRoomStatus(resp.Status), nil
}

// Create submits a booking for the token's user. A refusal that is not a slot
// conflict comes back as AuthoritativeRejection with the store's reason in the
// detail.
func (c *Client) Create(ctx context.Context, cand booking.Candidate) (*domain.Reservation, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/reservations", nil, createRequest{
		RoomID:    cand.RoomID,
		StartTime: cand.Start,
		EndTime:   cand.End,
	})
	if err != nil {
		return nil, err
	}

	var res domain.Reservation
	if err := c.doJSON(req, &res); err != nil {
		return nil, authoritative(err)
	}
	return &res, nil
}

func authoritative(err error) error {
	var re *domain.RejectionError
	if errors.As(err, &re) {
		switch re.Reason {
		case domain.ReasonSlotConflict, domain.ReasonNetworkFailure:
			return re
		}
		return &domain.RejectionError{
			Reason:        domain.ReasonAuthoritativeRejection,
			Detail:        re.Error(),
			Authoritative: true,
		}
	}
	var se *StatusError
	if errors.As(err, &se) {
		return &domain.RejectionError{
			Reason:        domain.ReasonAuthoritativeRejection,
			Detail:        se.Error(),
			Authoritative: true,
		}
	}
	return err
}

// Cancel routes BySelf to the owner endpoint and ByAdmin to force-cancel. The
// store's reason is kept as is.
func (c *Client) Cancel(ctx context.Context, cr domain.CancelRequest, id int64) (*domain.Reservation, error) {
	path := "/reservations/" + strconv.FormatInt(id, 10) + "/cancel"
	if cr.Authority() == domain.AuthorityAdmin {
		path = "/admin/reservations/" + strconv.FormatInt(id, 10) + "/force-cancel"
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp cancelResponse
	if err := c.doJSON(req, &resp); err != nil {
		return nil, err
	}
	return resp.Reservation, nil
}

func (c *Client) SetRoomStatus(ctx context.Context, roomID int, status domain.RoomStatus) (*domain.Room, error) {
	req, err := c.newRequest(ctx, http.MethodPut, "/admin/rooms/"+strconv.Itoa(roomID)+"/status", nil,
		map[string]string{"status": string(status)})
	if err != nil {
		return nil, err
	}

	var room domain.Room
	if err := c.doJSON(req, &room); err != nil {
		return nil, err
	}
	room.Status = domain.NormalizeRoomStatus(string(room.Status))
	return &room, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload any) (*http.Request, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	if query != nil {
		base.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, base.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) doJSON(req *http.Request, dest any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.Reject(domain.ReasonNetworkFailure, "%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// decodeError turns a non-2xx response into a rejection when the body names a
// reason. Server-side failures and throttling read as NetworkFailure.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return domain.Reject(domain.ReasonNetworkFailure, "%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if reason, ok := domain.ParseReason(e.Reason); ok {
			detail := strings.TrimPrefix(e.Error, string(reason)+": ")
			return &domain.RejectionError{Reason: reason, Detail: detail, Authoritative: true}
		}
		if e.Error != "" {
			return &StatusError{Code: resp.StatusCode, Message: e.Error}
		}
	}
	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
