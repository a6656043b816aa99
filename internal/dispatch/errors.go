package dispatch

import "fmt"

// RemoteError reports a failure the server side returned in its error
// payload. It propagates unchanged; no retry policy lives here.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("dispatch: remote execution failed: %s", e.Message)
}
