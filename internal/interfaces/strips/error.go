// Package strips
package strips

type OperationErrno byte

const (
	OperationOk OperationErrno = iota
	FlightNotFound
	SessionNotFound
	PermissionDenied
	SessionClosed
	FieldInvalid
	FlightDeleted
)

var operationErrnoString = []string{"No error", "Flight not found", "Session not found",
	"Permission denied", "Session closed", "Invalid field", "Flight already deleted"}

func (e OperationErrno) String() string {
	return operationErrnoString[e]
}

func (e OperationErrno) Index() int {
	return int(e)
}

// OperationError 服务端拒绝某次更新时回送的命名错误事件.
// 客户端收到后必须清除对应的待确认标记并恢复原值.
type OperationError struct {
	Action   string         `json:"action"`
	FlightID string         `json:"flightId,omitempty"`
	Errno    OperationErrno `json:"errno"`
	Error    string         `json:"error"`
}
