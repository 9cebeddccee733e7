// Package extractors registers all extractor backends with
// vidfetch.DefaultRegistry; import it for side effects.
package extractors

import (
	_ "github.com/vidfetch/vidfetch/extractors/youtube"
	_ "github.com/vidfetch/vidfetch/extractors/ytdlp"
)
