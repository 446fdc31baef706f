package job

import (
	"time"

	"github.com/r3store/r3/internal/rerr"
)

// discriminatorKeys lists the mutually exclusive top-level keys that
// select a Dependency's Kind, in the on-disk config document.
var discriminatorKeys = []string{"job", "git", "find_latest", "find_all", "query", "query_all"}

var allowedKeysByDiscriminator = map[string]map[string]bool{
	"job":         keySet("job", "source", "destination", "recursive_checkout", "provenance"),
	"git":         keySet("git", "commit", "branch", "tag", "source", "destination"),
	"find_latest": keySet("find_latest", "source", "destination", "recursive_checkout"),
	"find_all":    keySet("find_all", "destination"),
	"query":       keySet("query", "destination", "recursive_checkout"),
	"query_all":   keySet("query_all", "destination"),
}

func keySet(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// FromConfigValue parses one dependency document (already decoded from
// YAML into a generic map) into a Dependency. Exactly one discriminator
// key must be present; any key outside that variant's allowed set is
// rejected.
func FromConfigValue(raw map[string]interface{}) (Dependency, error) {
	discriminator := ""
	for _, k := range discriminatorKeys {
		if _, ok := raw[k]; ok {
			if discriminator != "" {
				return Dependency{}, rerr.Newf(rerr.Invalid, "dependency document has multiple discriminator keys (%q and %q)", discriminator, k)
			}
			discriminator = k
		}
	}
	if discriminator == "" {
		return Dependency{}, rerr.New(rerr.Invalid, "dependency document has no recognized discriminator key")
	}

	allowed := allowedKeysByDiscriminator[discriminator]
	for k := range raw {
		if !allowed[k] {
			return Dependency{}, rerr.Newf(rerr.Invalid, "unknown key %q in %s dependency document", k, discriminator)
		}
	}

	switch discriminator {
	case "job":
		jobID, _ := raw["job"].(string)
		if jobID == "" {
			return Dependency{}, rerr.New(rerr.Invalid, "job dependency requires a non-empty job id")
		}
		d := Dependency{
			Kind:              KindJob,
			JobID:             jobID,
			Source:            stringOr(raw["source"], defaultSource),
			Destination:       stringOr(raw["destination"], ""),
			RecursiveCheckout: boolOr(raw["recursive_checkout"], false),
		}
		if prov, ok := raw["provenance"].(map[string]interface{}); ok {
			d.Provenance = prov
		}
		return d, nil

	case "git":
		remote, _ := raw["git"].(string)
		if remote == "" {
			return Dependency{}, rerr.New(rerr.Invalid, "git dependency requires a non-empty url")
		}
		d := Dependency{
			Kind:        KindGit,
			Remote:      remote,
			Commit:      stringOr(raw["commit"], ""),
			Branch:      stringOr(raw["branch"], ""),
			Tag:         stringOr(raw["tag"], ""),
			Source:      stringOr(raw["source"], defaultSource),
			Destination: stringOr(raw["destination"], ""),
		}
		if err := d.Validate(); err != nil {
			return Dependency{}, err
		}
		return d, nil

	case "find_latest":
		q, ok := raw["find_latest"].(map[string]interface{})
		if !ok {
			return Dependency{}, rerr.New(rerr.Invalid, "find_latest requires a query document")
		}
		return Dependency{
			Kind:              KindFindLatest,
			Query:             q,
			Source:            stringOr(raw["source"], defaultSource),
			Destination:       stringOr(raw["destination"], ""),
			RecursiveCheckout: boolOr(raw["recursive_checkout"], false),
		}, nil

	case "find_all":
		q, ok := raw["find_all"].(map[string]interface{})
		if !ok {
			return Dependency{}, rerr.New(rerr.Invalid, "find_all requires a query document")
		}
		return Dependency{
			Kind:        KindFindAll,
			Query:       q,
			Destination: stringOr(raw["destination"], ""),
		}, nil

	case "query":
		tags, err := toTags(raw["query"])
		if err != nil {
			return Dependency{}, err
		}
		return Dependency{
			Kind:              KindQuery,
			Tags:              tags,
			Destination:       stringOr(raw["destination"], ""),
			RecursiveCheckout: boolOr(raw["recursive_checkout"], false),
		}, nil

	case "query_all":
		tags, err := toTags(raw["query_all"])
		if err != nil {
			return Dependency{}, err
		}
		return Dependency{
			Kind:        KindQueryAll,
			Tags:        tags,
			Destination: stringOr(raw["destination"], ""),
		}, nil
	}

	panic("unreachable discriminator " + discriminator)
}

// ToConfigValue is the inverse of FromConfigValue: it renders d as the
// generic map that would be marshaled into r3.yaml's dependencies
// list, with every default spelled out explicitly so that
// FromConfigValue(d.ToConfigValue()) round-trips to an equal Dependency
// so a read-then-write round trip is lossless.
func (d Dependency) ToConfigValue() map[string]interface{} {
	m := map[string]interface{}{}
	switch d.Kind {
	case KindJob:
		m["job"] = d.JobID
		m["source"] = d.Source
		m["destination"] = d.Destination
		m["recursive_checkout"] = d.RecursiveCheckout
		if d.Provenance != nil {
			m["provenance"] = d.Provenance
		}
	case KindGit:
		m["git"] = d.Remote
		if d.Commit != "" {
			m["commit"] = d.Commit
		}
		if d.Branch != "" {
			m["branch"] = d.Branch
		}
		if d.Tag != "" {
			m["tag"] = d.Tag
		}
		m["source"] = d.Source
		m["destination"] = d.Destination
	case KindFindLatest:
		m["find_latest"] = d.Query
		m["source"] = d.Source
		m["destination"] = d.Destination
		m["recursive_checkout"] = d.RecursiveCheckout
	case KindFindAll:
		m["find_all"] = d.Query
		m["destination"] = d.Destination
	case KindQuery:
		m["query"] = tagsToValue(d.Tags)
		m["destination"] = d.Destination
		m["recursive_checkout"] = d.RecursiveCheckout
	case KindQueryAll:
		m["query_all"] = tagsToValue(d.Tags)
		m["destination"] = d.Destination
	}
	return m
}

func stringOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func boolOr(v interface{}, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func toTags(v interface{}) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []interface{}:
		tags := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, rerr.Newf(rerr.Invalid, "legacy query tag %v is not a string", item)
			}
			tags = append(tags, s)
		}
		return tags, nil
	default:
		return nil, rerr.Newf(rerr.Invalid, "legacy query value must be a string or list of strings, got %T", v)
	}
}

func tagsToValue(tags []string) interface{} {
	if len(tags) == 1 {
		return tags[0]
	}
	out := make([]interface{}, len(tags))
	for i, t := range tags {
		out[i] = t
	}
	return out
}

// Config is the canonical, fully in-memory projection of r3.yaml:
// every dependency, the ignore list, and (once committed) the
// timestamp and hash table.
type Config struct {
	Dependencies []Dependency
	Ignore       []string
	Timestamp    *time.Time
	Hashes       map[string]string
}

// rawConfig mirrors r3.yaml's on-disk shape for YAML (de)serialization.
type rawConfig struct {
	Dependencies []map[string]interface{} `yaml:"dependencies"`
	Ignore       []string                 `yaml:"ignore,omitempty"`
	Timestamp    *time.Time               `yaml:"timestamp,omitempty"`
	Hashes       map[string]string        `yaml:"hashes,omitempty"`
}

// FromConfigBytes parses r3.yaml's raw bytes into a Config, rejecting
// any dependency document with an unrecognized or out-of-variant key.
func FromConfigBytes(data []byte, unmarshal func([]byte, interface{}) error) (Config, error) {
	var raw rawConfig
	if err := unmarshal(data, &raw); err != nil {
		return Config{}, rerr.Wrap(rerr.Invalid, "parsing r3.yaml", err)
	}

	deps := make([]Dependency, 0, len(raw.Dependencies))
	for i, rd := range raw.Dependencies {
		d, err := FromConfigValue(rd)
		if err != nil {
			return Config{}, rerr.Wrapf(rerr.Invalid, err, "dependencies[%d]", i)
		}
		deps = append(deps, d)
	}

	return Config{
		Dependencies: deps,
		Ignore:       raw.Ignore,
		Timestamp:    raw.Timestamp,
		Hashes:       raw.Hashes,
	}, nil
}

// ToConfigBytes renders c back into r3.yaml's on-disk form using the
// supplied marshal function (gopkg.in/yaml.v3's Marshal in production,
// a fake in tests that want to inspect the intermediate document).
func (c Config) ToConfigBytes(marshal func(interface{}) ([]byte, error)) ([]byte, error) {
	raw := rawConfig{
		Ignore:    c.Ignore,
		Timestamp: c.Timestamp,
		Hashes:    c.Hashes,
	}
	raw.Dependencies = make([]map[string]interface{}, len(c.Dependencies))
	for i, d := range c.Dependencies {
		raw.Dependencies[i] = d.ToConfigValue()
	}
	return marshal(raw)
}
