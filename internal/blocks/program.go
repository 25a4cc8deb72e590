// Package blocks holds the learner's command sequence.
//
// A Program is an arena of blocks: every appended command gets an ID that
// stays valid while other blocks are removed, so a view can refer to a block
// by ID instead of by a position that shifts under it.
package blocks

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/evolvecode/gridtutor/internal/types"
)

var (
	ErrIndexOutOfRange = errors.New("blocks: index out of range")
	ErrUnknownBlock    = errors.New("blocks: unknown block id")
)

// ID is a stable block handle. IDs are never reused within a Program.
type ID uint64

// Block is one command with its handle.
type Block struct {
	ID      ID            `json:"id"`
	Command types.Command `json:"command"`
}

// Program is an ordered, mutable command sequence. It is not safe for
// concurrent use; the owning session serialises access.
type Program struct {
	blocks []Block
	nextID ID
}

// New returns an empty Program.
func New() *Program {
	return &Program{nextID: 1}
}

// Append adds cmd at the end and returns its handle.
func (p *Program) Append(cmd types.Command) ID {
	id := p.nextID
	p.nextID++
	p.blocks = append(p.blocks, Block{ID: id, Command: cmd})
	return id
}

// RemoveAt deletes the block at index and returns it.
//
// Expectations:
//   - Returns ErrIndexOutOfRange for index < 0 or index >= Len
//   - Later blocks shift down by one and keep their IDs
func (p *Program) RemoveAt(index int) (Block, error) {
	if index < 0 || index >= len(p.blocks) {
		return Block{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(p.blocks))
	}
	b := p.blocks[index]
	p.blocks = append(p.blocks[:index], p.blocks[index+1:]...)
	return b, nil
}

// Remove deletes the block with the given handle.
func (p *Program) Remove(id ID) (Block, error) {
	i := p.IndexOf(id)
	if i < 0 {
		return Block{}, fmt.Errorf("%w: %d", ErrUnknownBlock, id)
	}
	return p.RemoveAt(i)
}

// IndexOf returns the current index of id, or -1.
func (p *Program) IndexOf(id ID) int {
	for i, b := range p.blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Clear removes every block. IDs keep increasing afterwards.
func (p *Program) Clear() {
	p.blocks = nil
}

// Len returns the number of blocks.
func (p *Program) Len() int {
	return len(p.blocks)
}

// Blocks returns a copy of the blocks in order.
func (p *Program) Blocks() []Block {
	out := make([]Block, len(p.blocks))
	copy(out, p.blocks)
	return out
}

// Commands returns a copy of the commands in order.
func (p *Program) Commands() []types.Command {
	out := make([]types.Command, len(p.blocks))
	for i, b := range p.blocks {
		out[i] = b.Command
	}
	return out
}

// Labels returns the toolbox captions in order.
func (p *Program) Labels() []string {
	out := make([]string, len(p.blocks))
	for i, b := range p.blocks {
		out[i] = b.Command.Label()
	}
	return out
}

// MarshalBatch serialises the program as a JSON array of labels, the payload
// format of a user batch entry in the chat log.
func (p *Program) MarshalBatch() (string, error) {
	data, err := json.Marshal(p.Labels())
	if err != nil {
		return "", fmt.Errorf("blocks: marshal batch: %w", err)
	}
	return string(data), nil
}

// UnmarshalBatch decodes a chat batch payload back into labels.
func UnmarshalBatch(payload string) ([]string, error) {
	var labels []string
	if err := json.Unmarshal([]byte(payload), &labels); err != nil {
		return nil, fmt.Errorf("blocks: unmarshal batch: %w", err)
	}
	return labels, nil
}
