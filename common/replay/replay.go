package replay

import (
	"archive/zip"
	"bufio"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/Infatoshi/rusteze/common/recording"
)

type rawTrajectoryHandles struct {
	metadata io.ReadCloser
	steps    io.ReadCloser
	zip      *zip.ReadCloser
}

// Replayer reads a trajectory archive back: metadata first, then steps
// in recorded order.
type Replayer struct {
	filename string
	handles  rawTrajectoryHandles
}

func NewReplayer(filename string) (*Replayer, error) {
	handles, err := unzip(filename)
	if err != nil {
		return nil, err
	}

	return &Replayer{
		filename: filename,
		handles:  *handles,
	}, nil
}

func (r *Replayer) ReadMetadata() (recording.Metadata, error) {
	var metadata recording.Metadata

	defer r.handles.metadata.Close()

	raw, err := io.ReadAll(r.handles.metadata)
	if err != nil {
		return metadata, errors.Wrap(err, "could not read trajectory metadata")
	}

	if err := json.Unmarshal(raw, &metadata); err != nil {
		return metadata, errors.Wrap(err, "could not decode trajectory metadata")
	}

	return metadata, nil
}

// ReadSteps streams recorded steps; the channel closes after the last
// one and the archive handles are released.
func (r *Replayer) ReadSteps() chan recording.Step {
	out := make(chan recording.Step)

	go func() {
		defer close(out)
		defer r.handles.zip.Close()
		defer r.handles.steps.Close()

		scanner := bufio.NewScanner(r.handles.steps)
		scanner.Buffer(make([]byte, 1024*1024), 8*1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var step recording.Step
			if err := json.Unmarshal(line, &step); err != nil {
				continue
			}

			out <- step
		}
	}()

	return out
}

func unzip(filename string) (*rawTrajectoryHandles, error) {
	reader, err := zip.OpenReader(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not open trajectory archive")
	}

	handles := &rawTrajectoryHandles{zip: reader}

	for _, file := range reader.File {
		fd, err := file.Open()
		if err != nil {
			reader.Close()
			return nil, err
		}

		if file.Name == "Trajectory" {
			handles.steps = fd
		} else if file.Name == "TrajectoryMetadata" {
			handles.metadata = fd
		}
	}

	if handles.steps == nil || handles.metadata == nil {
		reader.Close()
		return nil, errors.New("archive is missing Trajectory or TrajectoryMetadata")
	}

	return handles, nil
}
