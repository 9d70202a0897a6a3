package task

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// identitySeparator keeps tuple elements from running into each other; a
// parameter value containing "," must not collide with two parameters.
const identitySeparator = "\x1f"

// Identity returns the node's deterministic identity: a fixed-width hex
// digest of (dependency identities, significant parameters, class name,
// optional code fingerprint). The result is memoized for the instance's
// lifetime unless identity caching is disabled on the node.
func (e *Engine) Identity(n Node) (string, error) {
	if n.Conf().CacheIdentity {
		if v, ok := e.ids.Load(n); ok {
			return v.(string), nil
		}
	}
	id, err := e.computeIdentity(n)
	if err != nil {
		return "", err
	}
	if n.Conf().CacheIdentity {
		e.ids.Store(n, id)
	}
	return id, nil
}

func (e *Engine) computeIdentity(n Node) (string, error) {
	items, err := e.requirementItems(n)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, item := range items {
		switch dep := item.(type) {
		case Node:
			// Non-significant dependencies are excluded entirely so
			// cosmetic edges never invalidate caches.
			if !dep.Conf().Significant {
				continue
			}
			id, err := e.Identity(dep)
			if err != nil {
				return "", errors.Wrapf(err, "dependency %s of %s", dep.TaskName(), n.TaskName())
			}
			parts = append(parts, id)
		case External:
			parts = append(parts, dep.SignificantParams())
		default:
			return "", errors.Wrapf(&ContractViolationError{Value: item}, "task %s", n.TaskName())
		}
	}
	parts = append(parts, n.Params().SignificantString())
	parts = append(parts, n.TaskName())
	if n.Conf().CodeFingerprintCheck {
		if f, ok := n.(Fingerprinted); ok {
			parts = append(parts, f.CodeFingerprint())
		}
	}
	sum := xxhash.Sum64String(strings.Join(parts, identitySeparator))
	return fmt.Sprintf("%016x", sum), nil
}
