// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"net/url"
	"strings"
)

// Destination is the logical publish target: either a direct subscriber URL
// or a named topic that fans out to all its subscribers. The kind chosen at
// construction also fixes how the publish response is decoded: a direct URL
// yields exactly one outcome, a topic yields one outcome per subscriber.
// The zero value is invalid.
type Destination struct {
	target string
	topic  bool
}

// DestinationURL returns a destination addressing a single subscriber URL.
// The URL must be absolute.
func DestinationURL(rawURL string) Destination {
	return Destination{target: rawURL}
}

// DestinationTopic returns a destination addressing a named topic.
func DestinationTopic(name string) Destination {
	return Destination{target: name, topic: true}
}

// Topic reports whether the destination fans out via a topic.
func (d Destination) Topic() bool { return d.topic }

// String returns the raw target (URL or topic name).
func (d Destination) String() string { return d.target }

// publishPath resolves the destination into the publish path suffix:
// publish/<topic-name> or publish/<escaped-url>.
func (d Destination) publishPath() (string, error) {
	if d.topic {
		if d.target == "" || strings.ContainsAny(d.target, "/?#") || !printable(d.target) {
			return "", fmt.Errorf("%w: topic %q", ErrInvalidDestination, d.target)
		}
		return "publish/" + d.target, nil
	}

	u, err := url.Parse(d.target)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: url %q", ErrInvalidDestination, d.target)
	}
	return "publish/" + url.PathEscape(d.target), nil
}

func printable(s string) bool {
	for _, r := range s {
		if r < 0x21 || r == 0x7f {
			return false
		}
	}
	return true
}
