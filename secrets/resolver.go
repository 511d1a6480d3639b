package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Resolver maps a secret name to its value.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// EnvResolver reads secrets from the process environment. An unset or
// blank variable is an error, never an empty password.
type EnvResolver struct {
	// Aliases renames a secret to the variable that holds it.
	Aliases map[string]string
}

func (r *EnvResolver) Resolve(_ context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty secret name")
	}
	envName := r.envName(name)
	val, ok := os.LookupEnv(envName)
	switch {
	case !ok:
		return "", fmt.Errorf("env var %s is not set", envName)
	case strings.TrimSpace(val) == "":
		return "", fmt.Errorf("env var %s is empty", envName)
	}
	return val, nil
}

func (r *EnvResolver) envName(name string) string {
	if r == nil {
		return name
	}
	if alias := strings.TrimSpace(r.Aliases[name]); alias != "" {
		return alias
	}
	return name
}

// PasswordEnv is the variable consulted when the keychain has no entry.
const PasswordEnv = "SMTP_PASSWORD"

// Lookup returns the password for account: the keychain entry first, then
// the SMTP_PASSWORD environment variable. Both missing yields "".
func Lookup(ctx context.Context, store Store, env Resolver, account string) (string, error) {
	var storeErr error
	if store != nil {
		v, err := store.Get(ctx, account)
		if err == nil && v != "" {
			return v, nil
		}
		storeErr = err
	}
	if env != nil {
		if v, err := env.Resolve(ctx, PasswordEnv); err == nil {
			return v, nil
		}
	}
	return "", storeErr
}
