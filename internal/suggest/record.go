package suggest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"moodreel/internal/services"
)

// Recording is one collaborator response persisted for replay.
type Recording struct {
	MovieID    int64     `json:"movie_id"`
	ProfileID  int64     `json:"profile_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Response   *Response `json:"response,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

func recordingPath(dir, kind string, movieID, profileID int64) string {
	return filepath.Join(dir, fmt.Sprintf("%s-movie-%d-profile-%d.json", kind, movieID, profileID))
}

// Recorder forwards to a Suggester and writes every successful response to dir.
type Recorder struct {
	next Suggester
	dir  string
	now  func() time.Time
}

// NewRecorder creates dir when needed and wraps next.
func NewRecorder(next Suggester, dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	return &Recorder{next: next, dir: dir, now: time.Now}, nil
}

// Suggest forwards and records the candidate set.
func (r *Recorder) Suggest(ctx context.Context, req Request) (Response, error) {
	resp, err := r.next.Suggest(ctx, req)
	if err != nil {
		return resp, err
	}
	rec := Recording{MovieID: req.Movie.ID, ProfileID: req.Profile.ID, RecordedAt: r.now().UTC(), Response: &resp}
	if err := writeRecording(recordingPath(r.dir, "matches", req.Movie.ID, req.Profile.ID), rec); err != nil {
		return resp, services.Wrap(services.ErrConfiguration, "suggest", "record", "", err)
	}
	return resp, nil
}

// Reason forwards and records the narrative reason.
func (r *Recorder) Reason(ctx context.Context, req ReasonRequest) (string, error) {
	reason, err := r.next.Reason(ctx, req)
	if err != nil {
		return reason, err
	}
	rec := Recording{MovieID: req.Movie.ID, ProfileID: req.Profile.ID, RecordedAt: r.now().UTC(), Reason: reason}
	if err := writeRecording(recordingPath(r.dir, "reason", req.Movie.ID, req.Profile.ID), rec); err != nil {
		return reason, services.Wrap(services.ErrConfiguration, "suggest", "record", "", err)
	}
	return reason, nil
}

func writeRecording(path string, rec Recording) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Replayer serves recorded responses instead of calling the collaborator.
type Replayer struct {
	dir string
}

// NewReplayer reads recordings from dir.
func NewReplayer(dir string) (*Replayer, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("replay dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("replay dir %s is not a directory", dir)
	}
	return &Replayer{dir: dir}, nil
}

// Suggest returns the recorded candidate set. A missing recording is
// ErrNotFound so the pair is skipped.
func (r *Replayer) Suggest(_ context.Context, req Request) (Response, error) {
	rec, err := readRecording(recordingPath(r.dir, "matches", req.Movie.ID, req.Profile.ID))
	if err != nil {
		return Response{}, err
	}
	if rec.Response == nil {
		return Response{}, services.Wrap(services.ErrValidation, "suggest", "replay", "recording has no response", nil)
	}
	return *rec.Response, nil
}

// Reason returns the recorded reason.
func (r *Replayer) Reason(_ context.Context, req ReasonRequest) (string, error) {
	rec, err := readRecording(recordingPath(r.dir, "reason", req.Movie.ID, req.Profile.ID))
	if err != nil {
		return "", err
	}
	return rec.Reason, nil
}

func readRecording(path string) (Recording, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Recording{}, services.Wrap(services.ErrNotFound, "suggest", "replay", filepath.Base(path), nil)
	}
	if err != nil {
		return Recording{}, services.Wrap(services.ErrConfiguration, "suggest", "replay", "", err)
	}
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return Recording{}, services.Wrap(services.ErrValidation, "suggest", "replay", filepath.Base(path), err)
	}
	return rec, nil
}
