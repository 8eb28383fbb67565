package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// setFlagsFromYAML goes through all flags in fs and, for each one not set on
// the command line, takes its value from the YAML mapping. The key is the
// flag name upper-cased with dashes replaced by underscores.
func setFlagsFromYAML(fs *pflag.FlagSet, raw []byte) error {
	conf := make(map[string]string)
	if err := yaml.Unmarshal(raw, conf); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	alreadySet := make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) {
		alreadySet[f.Name] = true
	})
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if alreadySet[f.Name] || err != nil {
			return
		}
		tag := strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		val, ok := conf[tag]
		if !ok {
			return
		}
		if serr := fs.Set(f.Name, val); serr != nil {
			err = fmt.Errorf("invalid value %q for %s: %v", val, tag, serr)
		}
	})
	return err
}
