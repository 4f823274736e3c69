package channel

import (
	"github.com/fxnlabs/compute-channel/internal/compute"
)

// CommandKind names a command variant in logs and metrics.
type CommandKind string

const (
	KindRead          CommandKind = "read"
	KindReadTensor    CommandKind = "read_tensor"
	KindGetResource   CommandKind = "get_resource"
	KindCreate        CommandKind = "create"
	KindCreateTensor  CommandKind = "create_tensor"
	KindEmpty         CommandKind = "empty"
	KindEmptyTensor   CommandKind = "empty_tensor"
	KindExecute       CommandKind = "execute"
	KindFlush         CommandKind = "flush"
	KindSync          CommandKind = "sync"
	KindMemoryUsage   CommandKind = "memory_usage"
	KindMemoryCleanup CommandKind = "memory_cleanup"
	KindStartProfile  CommandKind = "start_profile"
	KindStopProfile   CommandKind = "stop_profile"
	KindRelease       CommandKind = "release"
)

// command is one unit of work on the queue. The set of implementations is
// closed: the worker switches over the concrete types below.
type command interface {
	kind() CommandKind
}

// tensorAlloc is the result of the tensor allocation commands.
type tensorAlloc struct {
	handle  compute.Handle
	strides []int
}

type readCommand struct {
	bindings []compute.Binding
	reply    *reply[[][]byte]
}

type readTensorCommand struct {
	bindings []compute.BindingWithMeta
	reply    *reply[[][]byte]
}

type getResourceCommand struct {
	binding compute.Binding
	reply   *reply[compute.Resource]
}

type createCommand struct {
	data  []byte
	reply *reply[compute.Handle]
}

type createTensorCommand struct {
	data     []byte
	shape    []int
	elemSize int
	reply    *reply[tensorAlloc]
}

type emptyCommand struct {
	size  uint64
	reply *reply[compute.Handle]
}

type emptyTensorCommand struct {
	shape    []int
	elemSize int
	reply    *reply[tensorAlloc]
}

// Fire-and-forget commands carry no reply.

type executeCommand struct {
	kernel   compute.Kernel
	count    compute.CubeCount
	bindings compute.Bindings
	mode     compute.ExecutionMode
}

type flushCommand struct{}

type syncCommand struct {
	reply *reply[struct{}]
}

type memoryUsageCommand struct {
	reply *reply[compute.MemoryUsage]
}

type memoryCleanupCommand struct{}

type startProfileCommand struct{}

type stopProfileCommand struct {
	reply *reply[compute.ProfileDuration]
}

type releaseCommand struct {
	handle compute.Handle
}

func (*readCommand) kind() CommandKind          { return KindRead }
func (*readTensorCommand) kind() CommandKind    { return KindReadTensor }
func (*getResourceCommand) kind() CommandKind   { return KindGetResource }
func (*createCommand) kind() CommandKind        { return KindCreate }
func (*createTensorCommand) kind() CommandKind  { return KindCreateTensor }
func (*emptyCommand) kind() CommandKind         { return KindEmpty }
func (*emptyTensorCommand) kind() CommandKind   { return KindEmptyTensor }
func (*executeCommand) kind() CommandKind       { return KindExecute }
func (*flushCommand) kind() CommandKind         { return KindFlush }
func (*syncCommand) kind() CommandKind          { return KindSync }
func (*memoryUsageCommand) kind() CommandKind   { return KindMemoryUsage }
func (*memoryCleanupCommand) kind() CommandKind { return KindMemoryCleanup }
func (*startProfileCommand) kind() CommandKind  { return KindStartProfile }
func (*stopProfileCommand) kind() CommandKind   { return KindStopProfile }
func (*releaseCommand) kind() CommandKind       { return KindRelease }
