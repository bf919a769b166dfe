// Package teamdata parses and validates the team document: the declarative
// description of teams, their members and their repository access.
package teamdata

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/teamsync/internal/platform"
)

// Format is a serialization of the team document.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "yaml"
}

// FormatFromPath picks JSON for .json files and YAML for everything else.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Document keys.
const (
	keyMembers     = "members"
	keyDescription = "description"
	keyIgnored     = "team_sync_ignored"
	keyRepos       = "repos"
	keyLogin       = "github"
	keyName        = "name"
	keyPattern     = "pattern"
	keyIgnore      = "ignore"
	keyPermission  = "permission"
)

// Parse decodes raw in the given format and validates it into a TeamSet.
// Empty and comment-only documents produce an empty set. Every validation
// failure is a *FormatError.
func Parse(raw []byte, format Format) (TeamSet, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return TeamSet{}, nil
	}

	var doc any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, formatErr("", "decoding JSON: %v", err)
		}
	default:
		var root yaml.Node
		if err := yaml.Unmarshal(raw, &root); err != nil {
			return nil, formatErr("", "decoding YAML: %v", err)
		}
		var err error
		if doc, err = yamlValue("", &root); err != nil {
			return nil, err
		}
	}
	return build(doc)
}

func build(doc any) (TeamSet, error) {
	if doc == nil {
		return TeamSet{}, nil
	}
	teams, ok := doc.(map[string]any)
	if !ok {
		return nil, formatErr("", "top-level value must be a mapping of team names, got %s", kind(doc))
	}

	names := make([]string, 0, len(teams))
	for name := range teams {
		names = append(names, name)
	}
	sort.Strings(names)

	set := make(TeamSet, len(teams))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, formatErr("", "team names must not be empty")
		}
		spec, err := parseTeam(name, teams[name])
		if err != nil {
			return nil, err
		}
		set[name] = spec
	}
	return set, nil
}

func parseTeam(path string, v any) (TeamSpec, error) {
	var spec TeamSpec
	m, err := asMap(path, v)
	if err != nil {
		return spec, err
	}

	rawMembers, ok := m[keyMembers]
	if !ok {
		return spec, formatErr(path, "members is required")
	}
	members, ok := rawMembers.([]any)
	if !ok {
		return spec, formatErr(join(path, keyMembers), "must be a list, got %s", kind(rawMembers))
	}
	for i, raw := range members {
		member, err := parseMember(index(join(path, keyMembers), i), raw)
		if err != nil {
			return spec, err
		}
		spec.Members = append(spec.Members, member)
	}

	if spec.Description, err = optionalString(m, path, keyDescription); err != nil {
		return spec, err
	}

	if raw, ok := m[keyIgnored]; ok && raw != nil {
		b, ok := raw.(bool)
		if !ok {
			return spec, formatErr(join(path, keyIgnored), "must be a boolean, got %s", kind(raw))
		}
		spec.IgnoreSync = b
	}

	if raw, ok := m[keyRepos]; ok && raw != nil {
		rules, ok := raw.([]any)
		if !ok {
			return spec, formatErr(join(path, keyRepos), "must be a list, got %s", kind(raw))
		}
		spec.ManageRepos = true
		spec.Repos = make([]RepoRule, 0, len(rules))
		for i, r := range rules {
			rule, err := parseRule(index(join(path, keyRepos), i), r)
			if err != nil {
				return spec, err
			}
			spec.Repos = append(spec.Repos, rule)
		}
	}
	return spec, nil
}

func parseMember(path string, v any) (Member, error) {
	m, err := asMap(path, v)
	if err != nil {
		return Member{}, err
	}
	raw, ok := m[keyLogin]
	if !ok {
		return Member{}, formatErr(path, "github login is required")
	}
	login, ok := raw.(string)
	if !ok {
		return Member{}, formatErr(join(path, keyLogin), "must be a string, got %s", kind(raw))
	}
	login = strings.TrimSpace(login)
	if login == "" {
		return Member{}, formatErr(join(path, keyLogin), "must not be empty")
	}
	name, err := optionalString(m, path, keyName)
	if err != nil {
		return Member{}, err
	}
	member := Member{Login: login}
	if name != nil {
		member.Name = *name
	}
	return member, nil
}

func parseRule(path string, v any) (RepoRule, error) {
	rule := RepoRule{Permission: DefaultPermission}
	m, err := asMap(path, v)
	if err != nil {
		return rule, err
	}

	name, err := optionalString(m, path, keyName)
	if err != nil {
		return rule, err
	}
	if name != nil {
		rule.ExactName = strings.TrimSpace(*name)
	}
	if rule.Match, err = optionalRegexp(m, path, keyPattern); err != nil {
		return rule, err
	}
	if rule.Ignore, err = optionalRegexp(m, path, keyIgnore); err != nil {
		return rule, err
	}
	if rule.ExactName == "" && rule.Match == nil {
		return rule, formatErr(path, "one of name or pattern is required")
	}

	perm, err := optionalString(m, path, keyPermission)
	if err != nil {
		return rule, err
	}
	if perm != nil {
		p, err := platform.ParsePermission(*perm)
		if err != nil {
			return rule, formatErr(join(path, keyPermission), "%v", err)
		}
		rule.Permission = p
	}
	return rule, nil
}

func optionalString(m map[string]any, path, key string) (*string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, formatErr(join(path, key), "must be a string, got %s", kind(raw))
	}
	return &s, nil
}

func optionalRegexp(m map[string]any, path, key string) (*regexp.Regexp, error) {
	s, err := optionalString(m, path, key)
	if err != nil || s == nil || *s == "" {
		return nil, err
	}
	re, err := regexp.Compile(*s)
	if err != nil {
		return nil, formatErr(join(path, key), "invalid regular expression: %v", err)
	}
	return re, nil
}

func asMap(path string, v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, formatErr(path, "must be a mapping, got %s", kind(v))
	}
	return m, nil
}

// yamlValue converts a YAML node into the shapes the JSON decoder produces.
// Mapping keys are taken as their source text, so `2024:` names the team
// "2024" as it would in JSON. Timestamp scalars keep their source text too;
// every other scalar decodes by its resolved tag, so `42` stays a number and
// `true` a boolean.
func yamlValue(path string, n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(path, n.Content[0])
	case yaml.AliasNode:
		return yamlValue(path, n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for i, c := range n.Content {
			v, err := yamlValue(index(path, i), c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		return yamlMapping(path, n)
	case yaml.ScalarNode:
		if n.ShortTag() == "!!timestamp" {
			return n.Value, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, formatErr(path, "line %d: %v", n.Line, err)
		}
		return v, nil
	default:
		return nil, formatErr(path, "line %d: unsupported YAML node", n.Line)
	}
}

func yamlMapping(path string, n *yaml.Node) (map[string]any, error) {
	out := make(map[string]any, len(n.Content)/2)
	var merges []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, val := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.AliasNode {
			k = k.Alias
		}
		if k.Kind != yaml.ScalarNode {
			return nil, formatErr(path, "line %d: keys must be scalars", k.Line)
		}
		if k.ShortTag() == "!!merge" {
			merges = append(merges, val)
			continue
		}
		if _, dup := out[k.Value]; dup {
			return nil, formatErr(path, "line %d: duplicate key %q", k.Line, k.Value)
		}
		v, err := yamlValue(join(path, k.Value), val)
		if err != nil {
			return nil, err
		}
		out[k.Value] = v
	}

	// Explicit keys win over merged ones.
	for _, m := range merges {
		v, err := yamlValue(path, m)
		if err != nil {
			return nil, err
		}
		var sources []any
		switch mv := v.(type) {
		case map[string]any:
			sources = []any{mv}
		case []any:
			sources = mv
		default:
			return nil, formatErr(path, "line %d: merge value must be a mapping", m.Line)
		}
		for _, src := range sources {
			sm, err := asMap(path, src)
			if err != nil {
				return nil, err
			}
			for key, val := range sm {
				if _, ok := out[key]; !ok {
					out[key] = val
				}
			}
		}
	}
	return out, nil
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, uint64, float64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
