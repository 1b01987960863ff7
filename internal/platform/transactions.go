package platform

import "fmt"

const (
	// ServiceName is the bus name the host registers the platform service under.
	ServiceName = "org.anbox.PlatformService"
	// ObjectPath is the object the host exports the service on.
	ObjectPath = "/org/anbox/PlatformService"
	// InterfaceToken leads every request and is checked by the host.
	InterfaceToken = "org.anbox.IPlatformService"
)

// FirstCallTransaction is the lowest transaction code available to the
// platform service; the remaining codes follow it in declaration order.
const FirstCallTransaction uint32 = 1

// Transaction selects the operation a request invokes.
type Transaction uint32

const (
	// TransactionBootFinished tells the host the guest finished booting.
	TransactionBootFinished = Transaction(FirstCallTransaction + iota)
	// TransactionUpdateWindowState carries the full window state of one composition cycle.
	TransactionUpdateWindowState
	// TransactionUpdatePackageList is reserved; the guest does not send it.
	TransactionUpdatePackageList
	// TransactionSetClipboardData pushes guest clipboard text to the host.
	TransactionSetClipboardData
	// TransactionGetClipboardData pulls clipboard text from the host.
	TransactionGetClipboardData
)

// String returns the transaction name.
func (t Transaction) String() string {
	switch t {
	case TransactionBootFinished:
		return "BootFinished"
	case TransactionUpdateWindowState:
		return "UpdateWindowState"
	case TransactionUpdatePackageList:
		return "UpdatePackageList"
	case TransactionSetClipboardData:
		return "SetClipboardData"
	case TransactionGetClipboardData:
		return "GetClipboardData"
	default:
		return fmt.Sprintf("Transaction(%d)", uint32(t))
	}
}
