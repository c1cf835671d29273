package coord

import (
	"github.com/a2y-d5l/go-coord/account"
	"github.com/a2y-d5l/go-coord/cell"
	"github.com/a2y-d5l/go-coord/counter"
	"github.com/a2y-d5l/go-coord/gate"
)

// Core types
type Cell[T any] = cell.Cell[T]
type Account = account.Account
type Latch = gate.Latch
type Barrier = gate.Barrier

// Option types
type CellOption = cell.Option
type AccountOption = account.Option

// NewCell creates an empty single-slot cell.
func NewCell[T any](opts ...CellOption) *Cell[T] {
	return cell.New[T](opts...)
}

// NewCounter creates a reader/writer counter at zero.
func NewCounter() *counter.Counter[int64] {
	return counter.New[int64]()
}

// Constructors
var (
	NewAccount = account.New
	NewLatch   = gate.NewLatch
	NewBarrier = gate.NewBarrier
)
