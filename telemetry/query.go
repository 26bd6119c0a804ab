package telemetry

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

func (r *Recorder) Sessions() ([]Session, error) {
	rows, err := r.db.Query("SELECT id, profile, mode, started_at FROM sessions ORDER BY started_at DESC")
	if err != nil {
		return nil, errors.Wrap(err, "could not query sessions")
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var s Session
		var started int64
		if err := rows.Scan(&s.ID, &s.Profile, &s.Mode, &started); err != nil {
			return nil, errors.Wrap(err, "could not scan session")
		}
		s.StartedAt = time.Unix(0, started)
		sessions = append(sessions, s)
	}
	return sessions, errors.Wrap(rows.Err(), "could not read sessions")
}

// LatestSession returns the id of the most recent drive.
func (r *Recorder) LatestSession() (string, error) {
	var id string
	err := r.db.QueryRow("SELECT id FROM sessions ORDER BY started_at DESC LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		return "", errors.New("no recorded sessions")
	}
	return id, errors.Wrap(err, "could not query latest session")
}

func (r *Recorder) Frames(session string) ([]FrameRecord, error) {
	rows, err := r.db.Query("SELECT t, estimated, convergence, direction, speed FROM frames WHERE session_id = ? ORDER BY t", session)
	if err != nil {
		return nil, errors.Wrap(err, "could not query frames")
	}
	defer rows.Close()

	frames := []FrameRecord{}
	for rows.Next() {
		var f FrameRecord
		if err := rows.Scan(&f.T, &f.Estimated, &f.Convergence, &f.Direction, &f.Speed); err != nil {
			return nil, errors.Wrap(err, "could not scan frame")
		}
		frames = append(frames, f)
	}
	return frames, errors.Wrap(rows.Err(), "could not read frames")
}

func (r *Recorder) Ticks(session string) ([]TickRecord, error) {
	rows, err := r.db.Query(`SELECT t, speed_target, speed_current, speed_pulse, direction_target,
		direction_current, direction_pulse, trace FROM ticks WHERE session_id = ? ORDER BY t`, session)
	if err != nil {
		return nil, errors.Wrap(err, "could not query ticks")
	}
	defer rows.Close()

	ticks := []TickRecord{}
	for rows.Next() {
		var t TickRecord
		err := rows.Scan(&t.T, &t.SpeedTarget, &t.SpeedCurrent, &t.SpeedPulse, &t.DirectionTarget,
			&t.DirectionCurrent, &t.DirectionPulse, &t.Trace)
		if err != nil {
			return nil, errors.Wrap(err, "could not scan tick")
		}
		ticks = append(ticks, t)
	}
	return ticks, errors.Wrap(rows.Err(), "could not read ticks")
}
