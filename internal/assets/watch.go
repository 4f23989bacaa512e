package assets

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
)

// Watch builds once and rebuilds whenever an input changes, until ctx is
// cancelled. Rebuild failures are logged and do not stop watching.
func (p *Pipeline) Watch(ctx context.Context) error {
	entryPoints, err := p.entryPoints()
	if err != nil {
		return err
	}

	logger := zerolog.Ctx(ctx)

	emitter := api.Plugin{
		Name: "emit",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				p.takeExtra()
				return api.OnStartResult{}, nil
			})
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				p.mu.Lock()
				defer p.mu.Unlock()

				if err := p.check(*logger, *result); err != nil {
					return api.OnEndResult{}, nil
				}
				if err := p.emit(ctx, *result, entryPoints); err != nil {
					logger.Error().Err(err).Msg("Failed to emit build")
					return api.OnEndResult{}, nil
				}
				logger.Info().Msg("Rebuilt assets")
				return api.OnEndResult{}, nil
			})
		},
	}

	bctx, cerr := api.Context(p.buildOptions(entryPoints, p.rulesPlugin(false), emitter))
	if cerr != nil {
		return &BuildError{Messages: cerr.Errors}
	}
	defer bctx.Dispose()

	if err := bctx.Watch(api.WatchOptions{}); err != nil {
		return err
	}

	logger.Info().Strs("entrypoints", entryPoints).Msg("Watching for changes")
	<-ctx.Done()
	return nil
}
