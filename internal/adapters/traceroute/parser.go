package traceroute

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"

	"github.com/samirrijal/globetrace/internal/core/domain"
)

var ErrNoHops = errors.New("traceroute: no hops in output")

// ParseOutput reads traceroute's standard output and returns one Hop per
// TTL line. The header line and anything not starting with a TTL number are
// ignored. When several routers answer for the same TTL the first one wins:
// the hop keeps its address and only the RTTs measured to it.
func ParseOutput(r io.Reader) ([]domain.Hop, error) {
	var hops []domain.Hop

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		hop, ok := parseLine(sc.Text())
		if ok {
			hops = append(hops, hop)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read traceroute output: %w", err)
	}
	if len(hops) == 0 {
		return nil, ErrNoHops
	}
	return hops, nil
}

func parseLine(line string) (domain.Hop, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return domain.Hop{}, false
	}
	ttl, err := strconv.Atoi(fields[0])
	if err != nil || ttl <= 0 {
		return domain.Hop{}, false
	}

	hop := domain.Hop{TTL: ttl}
	// foreign is set while the probes being read belong to a router other
	// than the first responder; their RTTs are dropped.
	foreign := false
	tokens := fields[1:]
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == "*":
			hop.Timeouts++
		case tok == "ms", strings.HasPrefix(tok, "!"):
			// unit or annotation such as !H, !N, !X
		case strings.HasPrefix(tok, "(") && strings.HasSuffix(tok, ")"):
			if addr, err := netip.ParseAddr(strings.Trim(tok, "()")); err == nil {
				foreign = !claimAddress(&hop, addr)
			}
		case isRTT(tokens, i):
			if !foreign {
				v, _ := strconv.ParseFloat(tok, 64)
				hop.RTTs = append(hop.RTTs, v)
			}
		default:
			if addr, err := netip.ParseAddr(tok); err == nil {
				foreign = !claimAddress(&hop, addr)
			} else if hop.Host == "" {
				hop.Host = tok
			}
		}
	}
	return hop, true
}

// claimAddress records addr as the hop address if none has been seen yet. It
// reports whether addr is the hop's address.
func claimAddress(hop *domain.Hop, addr netip.Addr) bool {
	if hop.Address == "" {
		hop.Address = addr.String()
	}
	return hop.Address == addr.String()
}

func isRTT(tokens []string, i int) bool {
	if i+1 >= len(tokens) || tokens[i+1] != "ms" {
		return false
	}
	_, err := strconv.ParseFloat(tokens[i], 64)
	return err == nil
}
