package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adaptive-view-backend/internal/db"
	"adaptive-view-backend/internal/prediction"
)

type CtxKey string

const (
	ctxUserIDKey   CtxKey = "analytics_user_id"
	ctxEnvelopeKey CtxKey = "analytics_envelope"
)

// Envelope is what we store with every prediction event.
type Envelope struct {
	RequestID    string
	UserID       int
	SessionID    string
	Platform     string
	AppVersion   string
	DeviceLocale string
}

// FromRequest extracts event envelope fields from request headers.
func FromRequest(r *http.Request) Envelope {
	platform := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Platform")))
	if platform != "ios" && platform != "android" && platform != "web" {
		platform = "unknown"
	}

	locale := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if locale == "" {
		locale = strings.TrimSpace(r.Header.Get("X-Device-Locale"))
	}

	requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
	if requestID == "" {
		requestID = uuid.NewString()
	}

	env := Envelope{
		RequestID:    requestID,
		SessionID:    strings.TrimSpace(r.Header.Get("X-Session-Id")),
		Platform:     platform,
		AppVersion:   strings.TrimSpace(r.Header.Get("X-App-Version")),
		DeviceLocale: locale,
	}
	if uid, ok := UserIDFromContext(r.Context()); ok {
		env.UserID = uid
	}
	return env
}

func WithEnvelope(ctx context.Context, env Envelope) context.Context {
	return context.WithValue(ctx, ctxEnvelopeKey, env)
}

func EnvelopeFromContext(ctx context.Context) (Envelope, bool) {
	env, ok := ctx.Value(ctxEnvelopeKey).(Envelope)
	return env, ok
}

func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(ctxUserIDKey)
	if v == nil {
		return 0, false
	}
	uid, ok := v.(int)
	return uid, ok
}

// writeTimeout bounds one audit insert.
const writeTimeout = 2 * time.Second

// queueSize is how many events may wait for the writer before Record starts
// dropping them.
const queueSize = 1024

type queuedEvent struct {
	event     prediction.Event
	env       Envelope
	createdAt time.Time
}

// Recorder persists prediction events. It implements prediction.Recorder.
//
// Record only enqueues; a single writer goroutine owns the inserts so the
// prediction path never waits on the database. Close drains the queue.
type Recorder struct {
	store  *db.Store
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	closed  bool
	queue   chan queuedEvent
	done    chan struct{}
	dropped atomic.Int64
}

// NewRecorder starts the writer. Callers must Close the recorder before
// closing store.
func NewRecorder(store *db.Store, logger *zap.Logger) *Recorder {
	rc := newRecorder(store, logger, queueSize)
	go rc.run()
	return rc
}

func newRecorder(store *db.Store, logger *zap.Logger, size int) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
		now:    time.Now,
		queue:  make(chan queuedEvent, size),
		done:   make(chan struct{}),
	}
}

// Record queues one event for the writer. A full queue or a closed recorder
// drops the event with a warning; nothing surfaces to the prediction caller.
func (rc *Recorder) Record(ctx context.Context, e prediction.Event) {
	env, _ := EnvelopeFromContext(ctx)
	q := queuedEvent{event: e, env: env, createdAt: rc.now()}

	rc.mu.RLock()
	defer rc.mu.RUnlock()

	if rc.closed {
		rc.drop(q, "recorder closed")
		return
	}
	select {
	case rc.queue <- q:
	default:
		rc.drop(q, "queue full")
	}
}

func (rc *Recorder) drop(q queuedEvent, reason string) {
	rc.dropped.Add(1)
	rc.logger.Warn("Dropping prediction event",
		zap.String("reason", reason),
		zap.String("request_id", q.env.RequestID))
}

// Dropped is the number of events Record could not queue.
func (rc *Recorder) Dropped() int64 {
	return rc.dropped.Load()
}

// Close stops accepting events, writes what is already queued and waits for
// the writer to exit. Safe to call more than once.
func (rc *Recorder) Close() {
	rc.mu.Lock()
	first := !rc.closed
	if first {
		rc.closed = true
		close(rc.queue)
	}
	rc.mu.Unlock()

	<-rc.done
	if first {
		rc.logger.Info("Audit writer stopped", zap.Int64("dropped", rc.Dropped()))
	}
}

func (rc *Recorder) run() {
	defer close(rc.done)
	for q := range rc.queue {
		rc.write(q)
	}
}

// write inserts one event. Failures are logged and otherwise ignored.
func (rc *Recorder) write(q queuedEvent) {
	e, env := q.event, q.env
	if env.Platform == "" {
		env.Platform = "unknown"
	}

	snap, err := json.Marshal(e.Snapshot)
	if err != nil {
		rc.logger.Warn("Skipping prediction event", zap.Error(err))
		return
	}

	var errText sql.NullString
	if e.Err != nil {
		errText = sql.NullString{String: e.Err.Error(), Valid: true}
	}
	var userID sql.NullInt64
	if env.UserID != 0 {
		userID = sql.NullInt64{Int64: int64(env.UserID), Valid: true}
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	_, err = rc.store.DB.ExecContext(ctx, rc.store.Rebind(`
		INSERT INTO prediction_events (
			id, created_at_ms,
			request_id, user_id, session_id,
			platform, app_version, device_locale,
			snapshot,
			predicted_view, predicted_status_filter, predicted_priority_filter,
			error, latency_ms
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		uuid.NewString(), q.createdAt.UTC().UnixMilli(),
		nullIfEmpty(env.RequestID), userID, nullIfEmpty(env.SessionID),
		env.Platform, nullIfEmpty(env.AppVersion), nullIfEmpty(env.DeviceLocale),
		string(snap),
		nullIfEmpty(e.Result.View), nullIfEmpty(e.Result.StatusFilter), nullIfEmpty(e.Result.PriorityFilter),
		errText, float64(e.Latency.Microseconds())/1000,
	)
	if err != nil {
		rc.logger.Warn("Failed to record prediction event",
			zap.String("request_id", env.RequestID),
			zap.Error(err))
	}
}

// Prune deletes events older than the retention window.
func (rc *Recorder) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := rc.now().UTC().Add(-retention).UnixMilli()
	res, err := rc.store.DB.ExecContext(ctx,
		rc.store.Rebind(`DELETE FROM prediction_events WHERE created_at_ms < ?`), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Summary counts predictions per label since the given time.
type Summary struct {
	Since    time.Time      `json:"since"`
	Total    int            `json:"total"`
	Failed   int            `json:"failed"`
	View     map[string]int `json:"predicted_view"`
	Status   map[string]int `json:"predicted_status_filter"`
	Priority map[string]int `json:"predicted_priority_filter"`
}

func (rc *Recorder) Summarize(ctx context.Context, since time.Time) (Summary, error) {
	s := Summary{
		Since:    since.UTC(),
		View:     map[string]int{},
		Status:   map[string]int{},
		Priority: map[string]int{},
	}

	rows, err := rc.store.DB.QueryContext(ctx, rc.store.Rebind(`
		SELECT predicted_view, predicted_status_filter, predicted_priority_filter, error
		FROM prediction_events
		WHERE created_at_ms >= ?
	`), since.UTC().UnixMilli())
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var view, status, priority, errText sql.NullString
		if err := rows.Scan(&view, &status, &priority, &errText); err != nil {
			return Summary{}, err
		}
		s.Total++
		if errText.Valid {
			s.Failed++
			continue
		}
		s.View[view.String]++
		s.Status[status.String]++
		s.Priority[priority.String]++
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	return s, nil
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
