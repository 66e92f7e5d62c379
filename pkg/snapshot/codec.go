/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snapshot

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/carverauto/downtimeradar/pkg/models"
)

// Snapshots are stored column by column in the protobuf wire format. Event
// columns are packed; unknown fields are skipped on read.
const (
	codecVersion = 1

	fieldVersion     protowire.Number = 1
	fieldWeek        protowire.Number = 2
	fieldOpenTime    protowire.Number = 3
	fieldMonth       protowire.Number = 4
	fieldSavedAt     protowire.Number = 5
	fieldFailureType protowire.Number = 6
	fieldMachine     protowire.Number = 7
	fieldDownTime    protowire.Number = 8
	fieldDownValid   protowire.Number = 9
	fieldDelayTime   protowire.Number = 10
	fieldDelayValid  protowire.Number = 11
	fieldSubDefect   protowire.Number = 12
)

func encodeSnapshot(snap *models.WeeklySnapshot) []byte {
	var b []byte

	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, codecVersion)
	b = protowire.AppendTag(b, fieldWeek, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(snap.Week))
	b = protowire.AppendTag(b, fieldOpenTime, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(snap.OpenTime))
	b = protowire.AppendTag(b, fieldMonth, protowire.BytesType)
	b = protowire.AppendString(b, snap.Month)
	b = protowire.AppendTag(b, fieldSavedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(snap.SavedAt.UnixNano()))

	var down, downValid, delay, delayValid []byte

	for i := range snap.Events {
		ev := &snap.Events[i]

		b = protowire.AppendTag(b, fieldFailureType, protowire.BytesType)
		b = protowire.AppendString(b, ev.FailureType)
		b = protowire.AppendTag(b, fieldMachine, protowire.BytesType)
		b = protowire.AppendString(b, ev.Machine)
		b = protowire.AppendTag(b, fieldSubDefect, protowire.BytesType)
		b = protowire.AppendString(b, ev.SubDefect)

		down = protowire.AppendFixed64(down, math.Float64bits(ev.DownTime.Value))
		downValid = protowire.AppendVarint(downValid, protowire.EncodeBool(ev.DownTime.Valid))
		delay = protowire.AppendFixed64(delay, math.Float64bits(ev.DelayTime.Value))
		delayValid = protowire.AppendVarint(delayValid, protowire.EncodeBool(ev.DelayTime.Valid))
	}

	for _, col := range []struct {
		num  protowire.Number
		data []byte
	}{
		{fieldDownTime, down},
		{fieldDownValid, downValid},
		{fieldDelayTime, delay},
		{fieldDelayValid, delayValid},
	} {
		b = protowire.AppendTag(b, col.num, protowire.BytesType)
		b = protowire.AppendBytes(b, col.data)
	}

	return b
}

type decodedColumns struct {
	failureTypes, machines, subDefects []string
	down, delay                        []float64
	downValid, delayValid              []bool
}

func decodeSnapshot(b []byte) (*models.WeeklySnapshot, error) {
	snap := &models.WeeklySnapshot{}
	cols := &decodedColumns{}

	var version uint64

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, corrupt(protowire.ParseError(n))
		}

		b = b[n:]

		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			version, n = protowire.ConsumeVarint(b)
		case num == fieldWeek && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			snap.Week = int(v)
		case num == fieldOpenTime && typ == protowire.Fixed64Type:
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			snap.OpenTime = math.Float64frombits(v)
		case num == fieldMonth && typ == protowire.BytesType:
			snap.Month, n = protowire.ConsumeString(b)
		case num == fieldSavedAt && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			snap.SavedAt = time.Unix(0, protowire.DecodeZigZag(v)).UTC()
		case typ == protowire.BytesType:
			n = cols.consume(num, b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}

		if n < 0 {
			return nil, corrupt(protowire.ParseError(n))
		}

		b = b[n:]
	}

	if version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, version)
	}

	events, err := cols.events(snap.Week, snap.Month)
	if err != nil {
		return nil, err
	}

	snap.Events = events

	return snap, nil
}

func (c *decodedColumns) consume(num protowire.Number, b []byte) int {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}

	var err error

	switch num {
	case fieldFailureType:
		c.failureTypes = append(c.failureTypes, string(v))
	case fieldMachine:
		c.machines = append(c.machines, string(v))
	case fieldSubDefect:
		c.subDefects = append(c.subDefects, string(v))
	case fieldDownTime:
		c.down, err = unpackDoubles(v)
	case fieldDelayTime:
		c.delay, err = unpackDoubles(v)
	case fieldDownValid:
		c.downValid, err = unpackBools(v)
	case fieldDelayValid:
		c.delayValid, err = unpackBools(v)
	}

	if err != nil {
		return -1
	}

	return n
}

func (c *decodedColumns) events(week int, month string) ([]models.DowntimeEvent, error) {
	count := len(c.failureTypes)

	for _, l := range []int{
		len(c.machines), len(c.subDefects),
		len(c.down), len(c.downValid),
		len(c.delay), len(c.delayValid),
	} {
		if l != count {
			return nil, fmt.Errorf("%w: column length %d, expected %d", ErrCorruptSnapshot, l, count)
		}
	}

	events := make([]models.DowntimeEvent, count)

	for i := range events {
		events[i] = models.DowntimeEvent{
			FailureType: c.failureTypes[i],
			Machine:     c.machines[i],
			DownTime:    models.Hours{Value: c.down[i], Valid: c.downValid[i]},
			DelayTime:   models.Hours{Value: c.delay[i], Valid: c.delayValid[i]},
			SubDefect:   c.subDefects[i],
			Week:        week,
			Month:       month,
		}
	}

	return events, nil
}

func unpackDoubles(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, ErrCorruptSnapshot
	}

	out := make([]float64, 0, len(b)/8)

	for len(b) > 0 {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		out = append(out, math.Float64frombits(v))
		b = b[n:]
	}

	return out, nil
}

func unpackBools(b []byte) ([]bool, error) {
	var out []bool

	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		out = append(out, protowire.DecodeBool(v))
		b = b[n:]
	}

	return out, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
}
