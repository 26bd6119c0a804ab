package telemetry

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/Koyaani/titaniumcar/chassis"
	"github.com/Koyaani/titaniumcar/lane"
	"github.com/Koyaani/titaniumcar/utils"
)

const (
	QUEUE_SIZE     = 4096
	FLUSH_INTERVAL = 100 * time.Millisecond
	FLUSH_SIZE     = 512
)

type Session struct {
	ID        string    `json:"id"`
	Profile   string    `json:"profile"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`
}

type FrameRecord struct {
	T           float64 `json:"t"`
	Estimated   bool    `json:"estimated"`
	Convergence float64 `json:"convergence"`
	Direction   float64 `json:"direction"`
	Speed       float64 `json:"speed"`
}

type TickRecord struct {
	T                float64 `json:"t"`
	SpeedTarget      float64 `json:"speed_target"`
	SpeedCurrent     float64 `json:"speed_current"`
	SpeedPulse       int     `json:"speed_pulse"`
	DirectionTarget  float64 `json:"direction_target"`
	DirectionCurrent float64 `json:"direction_current"`
	DirectionPulse   int     `json:"direction_pulse"`
	Trace            float64 `json:"trace"`
}

// Recorder logs a drive to sqlite. Record calls only enqueue, a single
// writer goroutine batches rows into transactions, so callers on the
// actuation path never wait on disk.
type Recorder struct {
	db      *sql.DB
	session Session
	queue   chan any
	wg      sync.WaitGroup
	dropped utils.LogLimiter
	once    sync.Once
}

func OpenRecorder(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open drive log")
	}
	db.SetMaxOpenConns(1)
	_, _ = db.Exec("PRAGMA busy_timeout = 5000;")

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			profile TEXT,
			mode TEXT,
			started_at INTEGER
		);
		CREATE TABLE IF NOT EXISTS frames (
			session_id TEXT,
			t DOUBLE,
			estimated INTEGER,
			convergence DOUBLE,
			direction DOUBLE,
			speed DOUBLE,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);
		CREATE TABLE IF NOT EXISTS ticks (
			session_id TEXT,
			t DOUBLE,
			speed_target DOUBLE,
			speed_current DOUBLE,
			speed_pulse INTEGER,
			direction_target DOUBLE,
			direction_current DOUBLE,
			direction_pulse INTEGER,
			trace DOUBLE,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);
		CREATE INDEX IF NOT EXISTS frames_session ON frames(session_id, t);
		CREATE INDEX IF NOT EXISTS ticks_session ON ticks(session_id, t);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "could not create drive log tables")
	}

	return &Recorder{
		db:      db,
		queue:   make(chan any, QUEUE_SIZE),
		dropped: utils.LogLimiter{Interval: 5 * time.Second},
	}, nil
}

// StartSession registers a new drive and starts the writer.
func (r *Recorder) StartSession(profile, mode string) (string, error) {
	r.session = Session{
		ID:        uuid.New().String(),
		Profile:   profile,
		Mode:      mode,
		StartedAt: time.Now(),
	}
	_, err := r.db.Exec("INSERT INTO sessions (id, profile, mode, started_at) VALUES (?, ?, ?, ?)",
		r.session.ID, profile, mode, r.session.StartedAt.UnixNano())
	if err != nil {
		return "", errors.Wrap(err, "could not create drive session")
	}

	r.wg.Add(1)
	go r.write()
	slog.Info("recording drive", "session", r.session.ID)
	return r.session.ID, nil
}

func (r *Recorder) since(t time.Time) float64 {
	return t.Sub(r.session.StartedAt).Seconds()
}

func (r *Recorder) RecordFrame(at time.Time, cmd lane.Command) {
	r.enqueue(FrameRecord{
		T:           r.since(at),
		Estimated:   cmd.Estimated,
		Convergence: cmd.Convergence.X,
		Direction:   cmd.Direction,
		Speed:       cmd.Speed,
	})
}

func (r *Recorder) RecordTick(tick chassis.Tick) {
	rec := TickRecord{T: r.since(tick.Time)}
	for _, out := range tick.Outputs {
		switch out.Channel {
		case chassis.Speed.String():
			rec.SpeedTarget = out.State.Target
			rec.SpeedCurrent = out.State.Current
			rec.SpeedPulse = out.Pulse
			rec.Trace = out.State.Trace
		case chassis.Direction.String():
			rec.DirectionTarget = out.State.Target
			rec.DirectionCurrent = out.State.Current
			rec.DirectionPulse = out.Pulse
		}
	}
	r.enqueue(rec)
}

func (r *Recorder) enqueue(rec any) {
	select {
	case r.queue <- rec:
	default:
		r.dropped.Logwe(errors.New("drive log queue full, dropping record"))
	}
}

func (r *Recorder) write() {
	defer r.wg.Done()
	ticker := time.NewTicker(FLUSH_INTERVAL)
	defer ticker.Stop()

	batch := make([]any, 0, FLUSH_SIZE)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		utils.Loge(r.insert(batch))
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-r.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= FLUSH_SIZE {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (r *Recorder) insert(batch []any) error {
	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "could not begin drive log transaction")
	}
	defer tx.Rollback()

	for _, rec := range batch {
		switch rec := rec.(type) {
		case FrameRecord:
			_, err = tx.Exec("INSERT INTO frames (session_id, t, estimated, convergence, direction, speed) VALUES (?, ?, ?, ?, ?, ?)",
				r.session.ID, rec.T, rec.Estimated, rec.Convergence, rec.Direction, rec.Speed)
		case TickRecord:
			_, err = tx.Exec(`INSERT INTO ticks (session_id, t, speed_target, speed_current, speed_pulse,
				direction_target, direction_current, direction_pulse, trace) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.session.ID, rec.T, rec.SpeedTarget, rec.SpeedCurrent, rec.SpeedPulse,
				rec.DirectionTarget, rec.DirectionCurrent, rec.DirectionPulse, rec.Trace)
		}
		if err != nil {
			return errors.Wrap(err, "could not insert drive log record")
		}
	}
	return errors.Wrap(tx.Commit(), "could not commit drive log transaction")
}

// Close flushes queued records and closes the database. Records enqueued
// after Close panic, so stop producers first.
func (r *Recorder) Close() error {
	r.once.Do(func() { close(r.queue) })
	r.wg.Wait()
	return r.db.Close()
}
