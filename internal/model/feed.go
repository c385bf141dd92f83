package model

import (
	"fmt"
	"strings"
)

// FeedKind identifies one of the two ingestible feeds.
type FeedKind string

const (
	FeedPremiums FeedKind = "premiums"
	FeedClaims   FeedKind = "claims"
)

// AllFeeds lists the feed kinds in canonical order.
var AllFeeds = []FeedKind{FeedPremiums, FeedClaims}

// ParseFeedKind accepts the canonical names and the Spanish upload names
// ("primas", "gastos").
func ParseFeedKind(s string) (FeedKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "premiums", "primas":
		return FeedPremiums, nil
	case "claims", "gastos":
		return FeedClaims, nil
	}
	return "", fmt.Errorf("unknown feed %q (want premiums|claims)", s)
}
