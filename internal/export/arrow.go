// Package export writes recorded run histories as Arrow IPC files for
// analysis tooling. Two tables are produced: per-tick aggregates and the
// per-identity timeline.
package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/tick-loop/internal/snapshot"
)

// TickStatsSchema is the column layout of the per-tick aggregate table.
var TickStatsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "tick", Type: arrow.PrimitiveTypes.Int64},
	{Name: "identity_count", Type: arrow.PrimitiveTypes.Int64},
	{Name: "event_count", Type: arrow.PrimitiveTypes.Int64},
	{Name: "echo_total", Type: arrow.PrimitiveTypes.Float64},
	{Name: "echo_max", Type: arrow.PrimitiveTypes.Float64},
	{Name: "echo_min", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// IdentityTimelineSchema is the column layout of the per-identity table: one
// row per identity per tick.
var IdentityTimelineSchema = arrow.NewSchema([]arrow.Field{
	{Name: "tick", Type: arrow.PrimitiveTypes.Int64},
	{Name: "identity_id", Type: arrow.BinaryTypes.String},
	{Name: "module_tag", Type: arrow.BinaryTypes.String},
	{Name: "ancestry", Type: arrow.BinaryTypes.String},
	{Name: "theta", Type: arrow.PrimitiveTypes.Float64},
	{Name: "status", Type: arrow.BinaryTypes.String},
	{Name: "x", Type: arrow.PrimitiveTypes.Int64},
	{Name: "y", Type: arrow.PrimitiveTypes.Int64},
	{Name: "z", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// WriteTickStats writes the per-tick aggregate table as an Arrow IPC file.
func WriteTickStats(w io.Writer, history []snapshot.Tick) error {
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, TickStatsSchema)
	defer b.Release()

	for _, snap := range history {
		b.Field(0).(*array.Int64Builder).Append(int64(snap.Tick))
		b.Field(1).(*array.Int64Builder).Append(int64(len(snap.Identities)))
		b.Field(2).(*array.Int64Builder).Append(int64(len(snap.Events)))
		b.Field(3).(*array.Float64Builder).Append(snap.Echo.Total)
		b.Field(4).(*array.Float64Builder).Append(snap.Echo.Max)
		b.Field(5).(*array.Float64Builder).Append(snap.Echo.Min)
	}

	return writeRecord(w, TickStatsSchema, b, pool)
}

// WriteIdentityTimeline writes the per-identity table as an Arrow IPC file.
func WriteIdentityTimeline(w io.Writer, history []snapshot.Tick) error {
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, IdentityTimelineSchema)
	defer b.Release()

	for _, snap := range history {
		for _, id := range snap.Identities {
			b.Field(0).(*array.Int64Builder).Append(int64(snap.Tick))
			b.Field(1).(*array.StringBuilder).Append(id.ID)
			b.Field(2).(*array.StringBuilder).Append(id.ModuleTag)
			b.Field(3).(*array.StringBuilder).Append(id.Ancestry)
			b.Field(4).(*array.Float64Builder).Append(id.Theta)
			b.Field(5).(*array.StringBuilder).Append(string(id.Status))
			b.Field(6).(*array.Int64Builder).Append(int64(id.Position.X))
			b.Field(7).(*array.Int64Builder).Append(int64(id.Position.Y))
			b.Field(8).(*array.Int64Builder).Append(int64(id.Position.Z))
		}
	}

	return writeRecord(w, IdentityTimelineSchema, b, pool)
}

func writeRecord(w io.Writer, schema *arrow.Schema, b *array.RecordBuilder, pool memory.Allocator) error {
	rec := b.NewRecord()
	defer rec.Release()

	// ipc.NewFileWriter requires an io.WriteSeeker, so assemble the IPC file
	// in memory and copy the finished bytes to w.
	sb := &seekBuffer{}
	fw, err := ipc.NewFileWriter(sb, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return fmt.Errorf("export: failed to create IPC writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("export: failed to write record: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("export: failed to finalize IPC file: %w", err)
	}
	if _, err := w.Write(sb.buf); err != nil {
		return fmt.Errorf("export: failed to write IPC file: %w", err)
	}
	return nil
}

// seekBuffer is an in-memory io.WriteSeeker backing ipc.NewFileWriter.
type seekBuffer struct {
	buf []byte
	pos int64
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if end := s.pos + int64(len(p)); end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:], p)
	s.pos += int64(len(p))
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = s.pos + offset
	case io.SeekEnd:
		pos = int64(len(s.buf)) + offset
	default:
		return 0, fmt.Errorf("export: invalid seek whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("export: negative seek position %d", pos)
	}
	s.pos = pos
	return pos, nil
}
