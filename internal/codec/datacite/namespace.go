package datacite

import (
	"strings"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

const (
	namespacePrefix = "http://datacite.org/schema/kernel-"
	xsiNamespace    = "http://www.w3.org/2001/XMLSchema-instance"
)

// ResolveNamespace maps a declared schema namespace to the canonical
// namespace of its generation. Kernel-2 and unknown kernels are rejected
// with an UnsupportedSchemaError carrying identifier. An empty namespace is
// read as kernel-4.
func ResolveNamespace(ns, identifier string) (string, error) {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return types.NamespaceKernel4, nil
	}
	version, ok := strings.CutPrefix(strings.TrimSuffix(ns, "/"), namespacePrefix)
	if !ok {
		return "", &types.UnsupportedSchemaError{Identifier: identifier, Namespace: ns}
	}
	switch {
	case version == "3" || strings.HasPrefix(version, "3."):
		return types.NamespaceKernel3, nil
	case version == "4" || strings.HasPrefix(version, "4."):
		return types.NamespaceKernel4, nil
	}
	return "", &types.UnsupportedSchemaError{Identifier: identifier, Namespace: ns}
}

// IsDataCiteNamespace reports whether ns is any kernel namespace, including
// retired ones.
func IsDataCiteNamespace(ns string) bool {
	return strings.HasPrefix(strings.TrimSpace(ns), namespacePrefix)
}

func schemaLocation(ns string) string {
	version := strings.TrimPrefix(ns, namespacePrefix)
	return ns + " http://schema.datacite.org/meta/kernel-" + version + "/metadata.xsd"
}
