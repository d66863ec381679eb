package objbind

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"golang.org/x/text/encoding/unicode/utf32"
)

// callStack is a bump allocator over a reserved region of guest memory.
// Arguments that are passed by address live in it for exactly the duration
// of one native call. Frames are released in LIFO order, which holds for
// nested native to managed to native calls on one guest thread.
type callStack struct {
	base uint32
	size uint32
	top  uint32
}

func newCallStack(base, size uint32) *callStack {
	return &callStack{
		base: base,
		size: size,
		top:  base,
	}
}

// Frame is the scratch memory of one call.
type Frame struct {
	engine *engine
	mem    api.Memory
	stack  *callStack
	mark   uint32
}

func (e *engine) newFrame(ctx context.Context) (*Frame, error) {
	mem, err := e.memory()
	if err != nil {
		return nil, err
	}

	stack, err := e.callStack(ctx)
	if err != nil {
		return nil, err
	}

	return &Frame{
		engine: e,
		mem:    mem,
		stack:  stack,
		mark:   stack.top,
	}, nil
}

func (f *Frame) Memory() api.Memory {
	return f.mem
}

func (f *Frame) Engine() IEngine {
	return f.engine
}

// Alloc reserves size bytes aligned to align, which must be a power of two.
func (f *Frame) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}

	ptr := (f.stack.top + align - 1) &^ (align - 1)
	end := ptr + size
	if end < ptr || end > f.stack.base+f.stack.size {
		return 0, fmt.Errorf("could not reserve %d bytes: %w", size, ErrFrameOverflow)
	}

	f.stack.top = end
	return ptr, nil
}

// Release frees everything the frame and frames opened after it reserved.
func (f *Frame) Release() {
	if f.stack.top > f.mark {
		f.stack.top = f.mark
	}
}

var stringEncoding = utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)

// String records are {u32 length in code points, UTF-32LE data}.
func encodeStringRecord(s string) ([]byte, error) {
	data, err := stringEncoding.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("could not encode string: %w", err)
	}

	record := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(record, uint32(len(data)/4))
	copy(record[4:], data)
	return record, nil
}

// WriteString writes a borrowed string record into the frame.
func (f *Frame) WriteString(s string) (uint32, error) {
	record, err := encodeStringRecord(s)
	if err != nil {
		return 0, err
	}

	ptr, err := f.Alloc(uint32(len(record)), 4)
	if err != nil {
		return 0, err
	}

	if !f.mem.Write(ptr, record) {
		return 0, fmt.Errorf("could not write string to memory at %#x", ptr)
	}

	return ptr, nil
}

// ReadString reads a string record without taking ownership of it.
func ReadString(mem api.Memory, ptr uint32) (string, error) {
	if ptr == 0 {
		return "", nil
	}

	length, ok := mem.ReadUint32Le(ptr)
	if !ok {
		return "", fmt.Errorf("could not read length of string at %#x", ptr)
	}

	data, ok := mem.Read(ptr+4, length*4)
	if !ok {
		return "", fmt.Errorf("could not read data of string at %#x", ptr)
	}

	decoded, err := stringEncoding.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("could not decode string at %#x: %w", ptr, err)
	}

	return string(decoded), nil
}

// TakeString reads a string record returned by native code and frees it.
func (f *Frame) TakeString(ctx context.Context, ptr uint32) (string, error) {
	s, err := ReadString(f.mem, ptr)
	if err != nil {
		return "", err
	}

	if err := f.engine.free(ctx, ptr); err != nil {
		return "", fmt.Errorf("could not free returned string: %w", err)
	}

	return s, nil
}

// Packed int32 array records are {u32 length, i32 data...}.
func encodeInt32SliceRecord(values []int32) []byte {
	record := make([]byte, 4+4*len(values))
	binary.LittleEndian.PutUint32(record, uint32(len(values)))
	for i := range values {
		binary.LittleEndian.PutUint32(record[4+4*i:], uint32(values[i]))
	}
	return record
}

func (f *Frame) WriteInt32Slice(values []int32) (uint32, error) {
	record := encodeInt32SliceRecord(values)

	ptr, err := f.Alloc(uint32(len(record)), 4)
	if err != nil {
		return 0, err
	}

	if !f.mem.Write(ptr, record) {
		return 0, fmt.Errorf("could not write array to memory at %#x", ptr)
	}

	return ptr, nil
}

func ReadInt32Slice(mem api.Memory, ptr uint32) ([]int32, error) {
	if ptr == 0 {
		return nil, nil
	}

	length, ok := mem.ReadUint32Le(ptr)
	if !ok {
		return nil, fmt.Errorf("could not read length of array at %#x", ptr)
	}

	values := make([]int32, length)
	for i := uint32(0); i < length; i++ {
		val, ok := mem.ReadUint32Le(ptr + 4 + i*4)
		if !ok {
			return nil, fmt.Errorf("could not read array element %d at %#x", i, ptr)
		}
		values[i] = int32(val)
	}

	return values, nil
}

func (f *Frame) TakeInt32Slice(ctx context.Context, ptr uint32) ([]int32, error) {
	values, err := ReadInt32Slice(f.mem, ptr)
	if err != nil {
		return nil, err
	}

	if err := f.engine.free(ctx, ptr); err != nil {
		return nil, fmt.Errorf("could not free returned array: %w", err)
	}

	return values, nil
}
