// Package imports pulls in every tool package so their init functions
// register them with the registry.
package imports

import (
	_ "github.com/BoTlInYQ/mcpserver/internal/tools/moviereviews"
	_ "github.com/BoTlInYQ/mcpserver/internal/tools/utilities/toolhelp"
)
