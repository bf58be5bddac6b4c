package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"floppyfs/pkg/trackengine"
)

// alwaysIgnoreAfterN answers Retry to the first n-1 exhaustion rounds and
// AlwaysIgnore from the n-th on, ignoring checksum errors for the rest of
// the session rather than hang waiting on stdin. retryPolicyFor uses it
// for "ignore" and for "interactive" without a terminal. This is what
// SectorCacheMFM::readDataAllFS's inlined getchar() prompt becomes when
// there's no terminal to prompt.
type alwaysIgnoreAfterN struct {
	n     int
	tries int
}

func newAlwaysIgnoreAfterN(n int) *alwaysIgnoreAfterN {
	return &alwaysIgnoreAfterN{n: n}
}

func (p *alwaysIgnoreAfterN) Decide() trackengine.RetryAction {
	p.tries++
	if p.tries >= p.n {
		return trackengine.ActionAlwaysIgnore
	}
	return trackengine.ActionRetry
}

// interactivePolicy prompts on stdin, the terminal-attached equivalent
// of the original's inlined getchar() retry/ignore/abort prompt.
type interactivePolicy struct {
	in *bufio.Reader
}

func newInteractivePolicy() *interactivePolicy {
	return &interactivePolicy{in: bufio.NewReader(os.Stdin)}
}

func (p *interactivePolicy) Decide() trackengine.RetryAction {
	fmt.Fprint(os.Stderr, "read error, retries exhausted: (r)etry, (i)gnore, (a)lways ignore, a(b)ort? ")
	line, _ := p.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "r", "retry", "":
		return trackengine.ActionRetry
	case "i", "ignore":
		return trackengine.ActionIgnore
	case "a", "always":
		return trackengine.ActionAlwaysIgnore
	default:
		return trackengine.ActionAbort
	}
}

func retryPolicyFor(name string, interactive bool) trackengine.RetryPolicy {
	switch strings.ToLower(name) {
	case "ignore":
		return newAlwaysIgnoreAfterN(1)
	case "interactive":
		if interactive {
			return newInteractivePolicy()
		}
		return newAlwaysIgnoreAfterN(3)
	default:
		return trackengine.AbortPolicy{}
	}
}
