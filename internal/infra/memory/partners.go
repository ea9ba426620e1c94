package memory

import (
	"context"
	"sync"

	"couplegame-service/internal/domain"
)

// StaticPartners is an app.PartnerDirectory over a fixed user -> partner map.
type StaticPartners struct {
	mu       sync.RWMutex
	partners map[string]string
}

func NewStaticPartners(partners map[string]string) *StaticPartners {
	p := &StaticPartners{partners: make(map[string]string, len(partners))}
	for user, partner := range partners {
		p.partners[user] = partner
	}
	return p
}

// Pair links a and b symmetrically, replacing any previous pairing of either.
func (p *StaticPartners) Pair(a, b string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.partners[a] = b
	p.partners[b] = a
}

func (p *StaticPartners) PartnerOf(_ context.Context, userID string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	partner, ok := p.partners[userID]
	if !ok || partner == "" {
		return "", domain.ErrNoPartner
	}
	return partner, nil
}
