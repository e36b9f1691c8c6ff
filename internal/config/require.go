package config

import (
	"log"
	"strings"
)

type required struct {
	env   string
	empty bool
}

func nonEmpty[T ~string | ~[]byte](value T, env string) required {
	return required{env: env, empty: len(value) == 0}
}

// missingEnv lists the env names of every empty required setting.
func missingEnv(reqs ...required) []string {
	var out []string
	for _, r := range reqs {
		if r.empty {
			out = append(out, r.env)
		}
	}
	return out
}

// mustNonEmpty stops the process naming all missing settings at once.
func mustNonEmpty(reqs ...required) {
	if missing := missingEnv(reqs...); len(missing) > 0 {
		log.Fatalf("missing required env: %s", strings.Join(missing, ", "))
	}
}
