package loaders

import (
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/traefik/paerser/cli"
	"github.com/traefik/paerser/file"
	"github.com/traefik/paerser/flag"
)

// paerser prefixes every parsed flag with its root name
const configFileFlag = "traefik.experimental.configFile"

type FileLoader struct{}

func (f *FileLoader) Load(args []string, cmd *cli.Command) (bool, error) {
	flags, err := flag.Parse(args, cmd.Configuration)

	if err != nil {
		return false, err
	}

	path, ok := flags[configFileFlag]

	if !ok || path == "" {
		return false, nil
	}

	tlog.App.Warn().Str("path", path).Msg("Loading configuration from file, flags and environment variables still take precedence")

	err = file.Decode(path, cmd.Configuration)

	if err != nil {
		return false, err
	}

	return true, nil
}
