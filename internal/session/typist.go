package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Typing cadence. Normal mode emulates a careful human; fast mode is
// for long here-doc style payloads where fidelity matters more than
// plausibility.
const (
	maxChunkNormal    = 10
	maxChunkFast      = 30
	minKeyDelay       = 40 * time.Millisecond
	maxKeyDelayNormal = 150 * time.Millisecond
	maxKeyDelayFast   = 80 * time.Millisecond
)

// shellPunct are the bytes that participate in multi-character shell
// operators and quoting (&&, ||, >>, 2>&1, ;;, ...). A chunk boundary
// between two of these can change how the line discipline interprets
// the command, so boundaries are never placed there.
const shellPunct = "&|<>;!$(){}[]#*?~^=%+-@:,./\\\"'`"

func isShellPunct(b byte) bool { return strings.IndexByte(shellPunct, b) >= 0 }

// chunkCommand splits cmd into typing chunks of random length in
// [1, maxLen]. A candidate boundary that falls strictly between two
// punctuation bytes is pushed right one byte at a time until it no
// longer splits such a pair. Concatenating the chunks in order always
// reproduces cmd exactly.
func chunkCommand(cmd string, maxLen int, rng *rand.Rand) []string {
	if maxLen < 1 {
		maxLen = 1
	}
	var chunks []string
	for i := 0; i < len(cmd); {
		end := i + 1 + rng.IntN(maxLen)
		if end > len(cmd) {
			end = len(cmd)
		}
		for end < len(cmd) && isShellPunct(cmd[end-1]) && isShellPunct(cmd[end]) {
			end++
		}
		chunks = append(chunks, cmd[i:end])
		i = end
	}
	return chunks
}

// typeCommand feeds cmd into the session's input one chunk at a time,
// pausing a random interval between chunks. The first failed write
// aborts the whole injection.
func (s *Session) typeCommand(ctx context.Context, cmd string, fast bool) error {
	maxLen, maxDelay := maxChunkNormal, maxKeyDelayNormal
	if fast {
		maxLen, maxDelay = maxChunkFast, maxKeyDelayFast
	}

	for _, chunk := range chunkCommand(cmd, maxLen, s.rng) {
		if err := s.backend.Stuff(ctx, chunk); err != nil {
			return fmt.Errorf("injecting keystrokes: %w", err)
		}
		delay := minKeyDelay + time.Duration(s.rng.Int64N(int64(maxDelay-minKeyDelay)))
		if err := sleepCtx(ctx, delay); err != nil {
			return fmt.Errorf("typing interrupted: %w", err)
		}
	}
	return nil
}
