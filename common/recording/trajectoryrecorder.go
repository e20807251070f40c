package recording

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/Infatoshi/rusteze/common/utils"
)

// TrajectoryRecorder buffers one session's steps in memory and writes a
// zip archive (metadata + JSON-lines trajectory) exactly once, at
// Close. Closing with no metadata or no steps still produces a valid
// archive; collected data is never dropped.
type TrajectoryRecorder struct {
	mutex    sync.Mutex
	buffer   strings.Builder
	filename string
	metadata *Metadata
	steps    int
	closed   bool
}

func MakeTrajectoryRecorder(filename string) *TrajectoryRecorder {
	return &TrajectoryRecorder{
		filename: filename,
	}
}

func (r *TrajectoryRecorder) RecordMetadata(sessionID string, metadata Metadata) error {
	r.mutex.Lock()
	r.metadata = &metadata
	r.mutex.Unlock()

	utils.Debug("TrajectoryRecorder", "created TrajectoryMetadata")

	return nil
}

func (r *TrajectoryRecorder) RecordStep(sessionID string, step Step) error {
	line, err := json.Marshal(step)
	if err != nil {
		return err
	}

	r.mutex.Lock()
	r.buffer.Write(line)
	r.buffer.WriteByte('\n')
	r.steps++
	r.mutex.Unlock()

	return nil
}

func (r *TrajectoryRecorder) Close(sessionID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	metadata := r.metadata
	if metadata == nil {
		metadata = &Metadata{SessionID: sessionID}
	}

	serialized, err := json.Marshal(*metadata)
	if err != nil {
		utils.Debug("TrajectoryRecorder", "could not serialize TrajectoryMetadata; "+err.Error())
		return
	}

	files := []ArchiveFile{
		{Name: "TrajectoryMetadata", Body: string(serialized)},
		{Name: "Trajectory", Body: r.buffer.String()},
	}

	if err := MakeArchive(r.filename, files); err != nil {
		utils.Debug("TrajectoryRecorder", "could not write trajectory archive; "+err.Error())
		return
	}

	utils.Debug("TrajectoryRecorder", "wrote trajectory archive")
}

func (r *TrajectoryRecorder) Stop() {}

func (r *TrajectoryRecorder) StepCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.steps
}
