package sim

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// An IDGenerator names transfers and other traced objects.
type IDGenerator interface {
	Generate() string
}

// NewSequentialIDGenerator returns a generator of the IDs 1, 2, 3 and so on.
// Two runs of the same fabric then produce comparable traces.
func NewSequentialIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewUniqueIDGenerator returns a generator of globally unique IDs, for
// traces of several runs that share a database.
func NewUniqueIDGenerator() IDGenerator {
	return uniqueIDGenerator{}
}

var (
	idGeneratorMu sync.Mutex
	idGenerator   IDGenerator
)

// SetIDGenerator replaces the generator of the process. It should be called
// before any fabric is built.
func SetIDGenerator(g IDGenerator) {
	idGeneratorMu.Lock()
	defer idGeneratorMu.Unlock()

	idGenerator = g
}

// GetIDGenerator returns the generator of the process, a sequential one
// unless SetIDGenerator says otherwise.
func GetIDGenerator() IDGenerator {
	idGeneratorMu.Lock()
	defer idGeneratorMu.Unlock()

	if idGenerator == nil {
		idGenerator = NewSequentialIDGenerator()
	}

	return idGenerator
}

type sequentialIDGenerator struct {
	last atomic.Uint64
}

func (g *sequentialIDGenerator) Generate() string {
	return strconv.FormatUint(g.last.Add(1), 10)
}

type uniqueIDGenerator struct{}

func (uniqueIDGenerator) Generate() string {
	return xid.New().String()
}
