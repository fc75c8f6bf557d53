// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stress

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"gvisor.dev/lockfree/pkg/lockfree"
	"gvisor.dev/lockfree/pkg/log"
	"gvisor.dev/lockfree/tools/lfstress/config"
)

// payload is published into the cells raced by RunCell. A reader that sees
// a payload whose sum does not match saw a partially written value.
type payload struct {
	round  int
	writer int
	words  [8]uint64
	sum    uint64
}

func makePayload(round, writer int) payload {
	p := payload{round: round, writer: writer}
	for i := range p.words {
		p.words[i] = uint64(round)<<32 | uint64(writer)<<8 | uint64(i)
		p.sum += p.words[i]
	}
	return p
}

func (p *payload) check(round int) error {
	if p.round != round {
		return violation("round %d read a value from round %d", round, p.round)
	}
	var sum uint64
	for _, w := range p.words {
		sum += w
	}
	if sum != p.sum {
		return violation("round %d: torn value from writer %d", round, p.writer)
	}
	return nil
}

// RunCell races Set, SetWith and GetOrInit on a fresh OnceCell per round.
// Exactly one writer must win each round, and every reader must see the
// winner's complete value.
func RunCell(ctx context.Context, c *config.Config, l log.Logger) (Result, error) {
	var r Result
	st := make(stats, c.Goroutines)
	for round := 0; round < c.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			st.addTo(&r)
			return r, fmt.Errorf("round %d: %w", round, err)
		}
		if err := cellRound(round, c.Goroutines, st); err != nil {
			st.addTo(&r)
			return r, err
		}
	}
	st.addTo(&r)
	l.Debugf("%d rounds, %d refusals", c.Rounds, r.Refusals)
	return r, nil
}

func cellRound(round, goroutines int, st stats) error {
	var (
		cell   lockfree.OnceCell[payload]
		wins   atomic.Int32
		winner atomic.Int32
		start  = make(chan struct{})
		g      errgroup.Group
	)
	winner.Store(-1)
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			ws := &st[i]
			<-start
			ws.attempts++

			var err error
			switch i % 3 {
			case 0:
				err = cell.Set(makePayload(round, i))
			case 1:
				err = cell.SetWith(func() payload { return makePayload(round, i) })
			default:
				ran := false
				_, err = cell.GetOrInit(func() payload {
					ran = true
					return makePayload(round, i)
				})
				if err == nil && !ran {
					// Someone else's value was returned.
					err = lockfree.ErrAlreadyInitialized
				}
			}
			switch {
			case err == nil:
				ws.successes++
				wins.Add(1)
				winner.Store(int32(i))
			case errors.Is(err, lockfree.ErrAlreadyInitialized), errors.Is(err, lockfree.ErrContended):
				ws.refusals++
			default:
				return fmt.Errorf("round %d: writer %d: %w", round, i, err)
			}

			if p, ok := cell.Get(); ok {
				return p.check(round)
			}
			return nil
		})
	}
	close(start)
	if err := g.Wait(); err != nil {
		return err
	}

	if n := wins.Load(); n != 1 {
		return violation("round %d: %d winners", round, n)
	}
	p, ok := cell.Get()
	if !ok {
		return violation("round %d: no value after the round", round)
	}
	if err := p.check(round); err != nil {
		return err
	}
	if w := int(winner.Load()); p.writer != w {
		return violation("round %d: value from writer %d, but writer %d won", round, p.writer, w)
	}
	return nil
}
