package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	calibration "channel-calibration/internal/calibration/domain"
	masterdata "channel-calibration/internal/masterdata/domain"
)

// AliasTable maps exact sheet labels to channel-name fragments. It is immutable
// once built.
type AliasTable struct {
	entries map[string]string
}

// NewAliasTable copies entries into a table.
func NewAliasTable(entries map[string]string) AliasTable {
	copied := make(map[string]string, len(entries))
	for label, fragment := range entries {
		copied[label] = fragment
	}
	return AliasTable{entries: copied}
}

// Lookup is a case-sensitive label lookup.
func (t AliasTable) Lookup(label string) (string, bool) {
	fragment, ok := t.entries[label]
	return fragment, ok
}

// Len returns the number of aliases.
func (t AliasTable) Len() int {
	return len(t.entries)
}

// Resolution describes how a label was mapped to a channel.
type Resolution struct {
	Channel  masterdata.Channel
	Label    string
	Fragment string
	Aliased  bool
	Fallback bool
}

// ChannelResolver maps sheet labels to existing channels.
type ChannelResolver struct {
	channels masterdata.ChannelRepository
	aliases  AliasTable
}

// NewChannelResolver constructs a resolver.
func NewChannelResolver(channels masterdata.ChannelRepository, aliases AliasTable) (*ChannelResolver, error) {
	if channels == nil {
		return nil, errors.New("channel resolver: nil channel repository")
	}
	return &ChannelResolver{channels: channels, aliases: aliases}, nil
}

// Resolve maps label through the alias table, then matches channel names by
// case-insensitive containment in either direction. There is no single-channel fallback.
func (r *ChannelResolver) Resolve(ctx context.Context, label string) (Resolution, error) {
	res := Resolution{Label: label, Fragment: strings.TrimSpace(label)}
	if fragment, ok := r.aliases.Lookup(label); ok {
		res.Fragment = fragment
		res.Aliased = true
	}
	if foldName(res.Fragment) == "" {
		return res, fmt.Errorf("%w: empty label", calibration.ErrChannelNotFound)
	}

	channels, err := r.channels.ListAll(ctx)
	if err != nil {
		return res, err
	}
	channel, ok := bestMatch(res.Fragment, channels)
	if !ok {
		return res, fmt.Errorf("%w: %q", calibration.ErrChannelNotFound, res.Fragment)
	}
	res.Channel = channel
	return res, nil
}

// ResolveWithFallback looks channels up by name fragment and, when none match
// and exactly one channel exists, returns that channel. FindByNameFragment is
// only a prefilter; a miss is retried with foldName against every channel.
func (r *ChannelResolver) ResolveWithFallback(ctx context.Context, fragment string) (Resolution, error) {
	res := Resolution{Label: fragment, Fragment: strings.TrimSpace(fragment)}
	if res.Fragment != "" {
		candidates, err := r.channels.FindByNameFragment(ctx, res.Fragment)
		if err != nil {
			return res, err
		}
		if channel, ok := bestMatch(res.Fragment, candidates); ok {
			res.Channel = channel
			return res, nil
		}
	}

	all, err := r.channels.ListAll(ctx)
	if err != nil {
		return res, err
	}
	if channel, ok := bestMatch(res.Fragment, all); ok {
		res.Channel = channel
		return res, nil
	}
	if len(all) == 1 {
		res.Channel = all[0]
		res.Fallback = true
		return res, nil
	}
	return res, fmt.Errorf("%w: %q among %d channels", calibration.ErrChannelNotFound, res.Fragment, len(all))
}

// bestMatch picks among channels whose folded name contains the fragment or is
// contained by it. Ranking: exact match, then the longest overlap, then the
// first channel in iteration order.
func bestMatch(fragment string, channels []masterdata.Channel) (masterdata.Channel, bool) {
	needle := foldName(fragment)
	if needle == "" {
		return masterdata.Channel{}, false
	}
	best := -1
	bestOverlap := 0
	for i, channel := range channels {
		name := foldName(channel.Name)
		if name == "" {
			continue
		}
		if name == needle {
			return channel, true
		}
		var overlap int
		switch {
		case strings.Contains(name, needle):
			overlap = len(needle)
		case strings.Contains(needle, name):
			overlap = len(name)
		default:
			continue
		}
		if overlap > bestOverlap {
			best, bestOverlap = i, overlap
		}
	}
	if best < 0 {
		return masterdata.Channel{}, false
	}
	return channels[best], true
}

// foldName upper-cases a name for comparison, treating dotted and dotless I alike
// and collapsing whitespace.
func foldName(name string) string {
	upper := strings.ToUpper(norm.NFC.String(name))
	upper = strings.ReplaceAll(upper, "İ", "I")
	return strings.Join(strings.Fields(upper), " ")
}
