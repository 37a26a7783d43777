package project

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// DomainProject separates project identity hashes from any other hash.
// The version suffix allows a future algorithm migration.
const DomainProject = "benchbuild/project/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalKey encodes fields as a JSON object with sorted keys, NFC
// normalized values and no HTML escaping.
func canonicalKey(fields map[string]string) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		// Encoding a string cannot fail.
		_ = enc.Encode(k)
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		_ = enc.Encode(norm.NFC.String(fields[k]))
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// StableID derives the identifier of a project from its declared key.
// Regenerating a shim for the same project yields the same ID, so records
// of both generations land on the same row.
func StableID(group, domain, name, version string) string {
	return hashWithDomain(DomainProject, canonicalKey(map[string]string{
		"group":   group,
		"domain":  domain,
		"name":    name,
		"version": version,
	}))[:32]
}

// PathExists reports whether p names an existing filesystem entry.
func PathExists(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

// ResolveName returns the basename of the first argument that names an
// existing path, or current if there is none.
func ResolveName(args []string, current string, exists func(string) bool) string {
	if exists == nil {
		exists = PathExists
	}
	for _, arg := range args {
		if !exists(arg) {
			continue
		}
		base := filepath.Base(filepath.Clean(arg))
		if base == "." || base == string(filepath.Separator) {
			continue
		}
		return norm.NFC.String(base)
	}
	return current
}

// Upserter persists project records. Implementations must perform an
// atomic, idempotent insert-or-update keyed by Record.ID and must tolerate
// concurrent callers writing the same ID.
type Upserter interface {
	UpsertProject(ctx context.Context, r Record) error
}

// Resolver refines the identity of a project from invocation arguments.
type Resolver struct {
	Store Upserter

	// Exists reports whether an argument names an existing path.
	// Defaults to PathExists.
	Exists func(string) bool
}

// Resolve updates p.Name from args and persists p when p.DetectName is set.
// The record is written even if the name did not change. Persistence errors
// are returned unmodified in meaning: attributing runs to the wrong project
// must abort the invocation.
func (r *Resolver) Resolve(ctx context.Context, args []string, p *Descriptor) error {
	if !p.DetectName {
		return nil
	}
	if r.Store == nil {
		return fmt.Errorf("resolve project %s: no store configured", p.ID)
	}

	name := ResolveName(args, p.Name, r.Exists)
	if name != p.Name {
		slog.Debug("project name refined", "project", p.ID, "from", p.Name, "to", name)
	}
	p.Name = name

	if err := r.Store.UpsertProject(ctx, p.Record); err != nil {
		return fmt.Errorf("persist project %s: %w", p.ID, err)
	}
	return nil
}
