package recording

type EmptyRecorder struct{}

func MakeEmptyRecorder() EmptyRecorder {
	return EmptyRecorder{}
}

func (r EmptyRecorder) RecordMetadata(sessionID string, metadata Metadata) error {
	return nil
}

func (r EmptyRecorder) RecordStep(sessionID string, step Step) error {
	return nil
}

func (r EmptyRecorder) Close(sessionID string) {}
func (r EmptyRecorder) Stop()                  {}
