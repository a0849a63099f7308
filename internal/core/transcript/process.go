// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
)

const maxDiagnosticBytes = 64 * 1024

var errOutputTooLarge = errors.New("process output exceeds the limit")

// cappedWriter keeps the first limit bytes and silently drops the rest, so a
// chatty process never blocks on a full stderr pipe.
type cappedWriter struct {
	buf   []byte
	limit int
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	if room := w.limit - len(w.buf); room > 0 {
		if len(p) > room {
			w.buf = append(w.buf, p[:room]...)
		} else {
			w.buf = append(w.buf, p...)
		}
	}
	return len(p), nil
}

func (w *cappedWriter) String() string {
	return string(w.buf)
}

// runBounded executes name with args, reading at most limit bytes of stdout.
// When the process writes more, it is killed and errOutputTooLarge returned.
// The process is also killed when ctx ends.
func runBounded(ctx context.Context, name string, args []string, stdin io.Reader, limit int64) ([]byte, string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	stderr := &cappedWriter{limit: maxDiagnosticBytes}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, "", err
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
		}
		return nil, "", err
	}

	data, readErr := io.ReadAll(io.LimitReader(stdout, limit+1))
	if int64(len(data)) > limit {
		cancel()
		_ = cmd.Wait()
		return nil, stderr.String(), errOutputTooLarge
	}
	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return data, stderr.String(), ctx.Err()
	}
	if readErr != nil {
		return data, stderr.String(), readErr
	}
	return data, stderr.String(), waitErr
}
