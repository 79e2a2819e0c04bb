package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/lightwiki/internal/dagger"
)

// Build and return a directory holding the lightwiki binary for the
// container's native platform
func (l *Lightwiki) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	const path = "bin/"

	build := l.goContainer().
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/lightwiki"})

	return dag.Directory().WithDirectory(path, build.Directory(path))
}

// BuildRelease compiles a versioned release binary with embedded version info
func (l *Lightwiki) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/lightwiki/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/lightwiki/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/lightwiki/pkg/utils.Buildtime=%s'", buildtime),
	}

	return l.Build(ctx, strings.Join(ldflags, " "))
}
