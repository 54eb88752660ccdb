package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/newsroom/internal/a2a"
)

// Discover probes the given base URLs concurrently, fetches each agent's
// card, and maps endpoints to roles using the card's skill tags. All four
// roles must be found for the result to be usable as a pipeline.
func Discover(ctx context.Context, client a2a.Client, endpoints []string) (map[Role]string, error) {
	var mu sync.Mutex
	found := make(map[Role]string, len(Roles()))

	g, gctx := errgroup.WithContext(ctx)
	for _, endpoint := range endpoints {
		g.Go(func() error {
			card, err := client.DiscoverAgent(gctx, endpoint)
			if err != nil {
				return fmt.Errorf("agent: discover %s: %w", endpoint, err)
			}

			role, ok := roleFromCard(card)
			if !ok {
				return fmt.Errorf("agent: %s (%s) declares no recognized role", endpoint, card.Name)
			}

			mu.Lock()
			defer mu.Unlock()
			if prev, dup := found[role]; dup {
				return fmt.Errorf("agent: role %q served by both %s and %s", role, prev, endpoint)
			}
			found[role] = endpoint
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, role := range Roles() {
		if _, ok := found[role]; !ok {
			return nil, fmt.Errorf("agent: no endpoint serves role %q", role)
		}
	}
	return found, nil
}

// roleFromCard extracts the role tag from an agent card's skills.
func roleFromCard(card *a2a.AgentCard) (Role, bool) {
	for _, skill := range card.Skills {
		for _, tag := range skill.Tags {
			if strings.HasPrefix(tag, metaRole) {
				return Role(strings.TrimPrefix(tag, metaRole)), true
			}
		}
	}
	return "", false
}
