package teamdata

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ziadkadry99/teamsync/internal/naming"
	"github.com/ziadkadry99/teamsync/internal/platform"
)

// Decode turns a content store payload into text.
func Decode(f platform.File) (string, error) {
	switch strings.ToLower(f.Encoding) {
	case "", "utf8", "utf-8", "ascii":
		return f.Content, nil
	case "latin1", "binary":
		runes := make([]rune, 0, len(f.Content))
		for i := 0; i < len(f.Content); i++ {
			runes = append(runes, rune(f.Content[i]))
		}
		return string(runes), nil
	case "base64":
		// GitHub wraps base64 content at 60 columns.
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(f.Content), ""))
		if err != nil {
			return "", fmt.Errorf("decoding base64 content: %w", err)
		}
		return string(b), nil
	case "hex":
		b, err := hex.DecodeString(strings.TrimSpace(f.Content))
		if err != nil {
			return "", fmt.Errorf("decoding hex content: %w", err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported content encoding %q", f.Encoding)
	}
}

// Source locates the team document inside a repository.
type Source struct {
	Owner string
	Repo  string
	Ref   string
	Path  string
}

// Load fetches, decodes and parses the team document described by src.
func Load(ctx context.Context, fetcher platform.ContentFetcher, src Source, log *logrus.Entry) (TeamSet, error) {
	file, err := fetcher.GetFile(ctx, src.Owner, src.Repo, src.Path, src.Ref)
	if err != nil {
		return nil, fmt.Errorf("fetching %s from %s/%s: %w", src.Path, src.Owner, src.Repo, err)
	}
	text, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src.Path, err)
	}
	log.WithField("path", src.Path).Debugf("fetched team document:\n%s", text)

	set, err := Parse([]byte(text), FormatFromPath(src.Path))
	if err != nil {
		return nil, err
	}
	log.Debugf("parsed %d teams: %s", len(set), strings.Join(set.Names(), ", "))
	return set, nil
}

// CheckSlugs fails when a team name derives an empty slug or when two
// distinct names derive the same slug under prefix.
func CheckSlugs(set TeamSet, prefix string) error {
	seen := make(map[string]string, len(set))
	for _, name := range set.Names() {
		s := naming.TeamSlug(prefix, name)
		if s == "" {
			return formatErr(name, "team name does not produce a usable slug")
		}
		if other, ok := seen[s]; ok {
			return formatErr(name, "slug %q collides with team %q", s, other)
		}
		seen[s] = name
	}
	return nil
}
