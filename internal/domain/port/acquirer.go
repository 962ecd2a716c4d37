package port

import "context"

// Acquirer fetches a remote source reference into local storage. The result
// is a complete, decodable local artifact or a typed *AcquisitionError;
// never a silently truncated file. Acquirers perform no catalog writes.
type Acquirer interface {
	Acquire(ctx context.Context, sourceURL string) (localPath, title string, err error)
}
