package os

import "fmt"

// RemoteException is raised for a Binder transaction failure: a remote
// onTransact threw, the target binder or node could not be reached, or the
// local dispatch path could not deliver the message at all.
type RemoteException struct {
	Message string
	Cause   error
}

func NewRemoteException(message string) *RemoteException {
	return &RemoteException{Message: message}
}

func NewRemoteExceptionWithCause(message string, cause error) *RemoteException {
	return &RemoteException{Message: message, Cause: cause}
}

func (e *RemoteException) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("os: remote exception: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("os: remote exception: %s", e.Message)
}

func (e *RemoteException) Unwrap() error { return e.Cause }

// ErrNoSuchMethod is the cause carried by a RemoteException produced by the
// default Binder.OnTransact stub.
var ErrNoSuchMethod = fmt.Errorf("os: no such method")
