// Package markdown strips Markdown formatting from document text so that a
// speech synthesizer does not read markup characters aloud.
package markdown

import (
	"regexp"
)

// Filter removes Markdown formatting from text, returning plain text.
// Elements are replaced with their best spoken forms:
//   - Links become only the link text
//   - Images become only the alt text
//   - Headers are stripped of # symbols
//   - Bold/italic markers are removed
//   - Code blocks are dropped entirely (code is not narratable)
func Filter(text string) string {
	return filterWithOptions(text, Options{StripListLeaders: true})
}

// Options configures the filtering behavior.
type Options struct {
	// SkipImages removes images entirely instead of keeping alt text.
	SkipImages bool
	// StripListLeaders removes list markers (*, -, +, 1.).
	StripListLeaders bool
}

// FilterWithOptions removes Markdown formatting with custom options.
func FilterWithOptions(text string, opts Options) string {
	return filterWithOptions(text, opts)
}

// Pre-compiled regex patterns, compiled once at package initialization.
// (?m) enables multiline mode; emphasis patterns use [^\n*] and friends to
// avoid matching across newlines.
var patterns struct {
	codeBlock        *regexp.Regexp // ```code```
	inlineCode       *regexp.Regexp // `code`
	boldAsterisk     *regexp.Regexp // **text**
	boldUnderscore   *regexp.Regexp // __text__
	italicAsterisk   *regexp.Regexp // *text*
	italicUnderscore *regexp.Regexp // _text_
	strikeThrough    *regexp.Regexp // ~~text~~
	headerAtx        *regexp.Regexp // # Heading
	headerSetext     *regexp.Regexp // Heading\n===
	link             *regexp.Regexp // [text](url)
	image            *regexp.Regexp // ![alt](url)
	html             *regexp.Regexp // <tag>
	blockquote       *regexp.Regexp // > quote
	listLeader       *regexp.Regexp // * item
	hr               *regexp.Regexp // --- or ***
	footnote         *regexp.Regexp // [^1]
	refLink          *regexp.Regexp // [1]: url
	multipleNewlines *regexp.Regexp // 3+ newlines
}

func init() {
	patterns.codeBlock = regexp.MustCompile("```[\\s\\S]*?```")
	patterns.inlineCode = regexp.MustCompile("`([^`\n]+)`")
	patterns.boldAsterisk = regexp.MustCompile(`\*\*([^\n*]+)\*\*`)
	patterns.boldUnderscore = regexp.MustCompile(`__([^\n_]+)__`)
	patterns.italicAsterisk = regexp.MustCompile(`\*([^\n*]+)\*`)
	patterns.italicUnderscore = regexp.MustCompile(`_([^\n_]+)_`)
	patterns.strikeThrough = regexp.MustCompile(`~~([^\n~]+)~~`)
	patterns.headerAtx = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	patterns.headerSetext = regexp.MustCompile(`\n={3,}\s*$`)
	patterns.link = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
	patterns.image = regexp.MustCompile(`!\[([^\]]*)\]\([^\)]+\)`)
	patterns.html = regexp.MustCompile(`<[^>]+>`)
	patterns.blockquote = regexp.MustCompile(`(?m)^\s*>\s*`)
	patterns.listLeader = regexp.MustCompile(`(?m)^\s*([*\-+]|\d+\.)\s+`)
	patterns.hr = regexp.MustCompile(`(?m)^\s*([-*_]{3,})\s*$`)
	patterns.footnote = regexp.MustCompile(`\[\^.+?\](?::\s*.+?$)?`)
	patterns.refLink = regexp.MustCompile(`(?m)^\s{0,2}\[.+?\]:\s*\S+.*?$`)
	patterns.multipleNewlines = regexp.MustCompile(`\n{3,}`)
}

func filterWithOptions(text string, opts Options) string {
	result := text

	// Code blocks first, they may contain every other pattern.
	result = patterns.codeBlock.ReplaceAllString(result, "")

	result = patterns.headerAtx.ReplaceAllString(result, "$1")
	result = patterns.headerSetext.ReplaceAllString(result, "")

	// Bold before italic so ** does not get half-eaten by the * pattern.
	result = patterns.boldAsterisk.ReplaceAllString(result, "$1")
	result = patterns.boldUnderscore.ReplaceAllString(result, "$1")
	result = patterns.strikeThrough.ReplaceAllString(result, "$1")
	result = patterns.italicAsterisk.ReplaceAllString(result, "$1")
	result = patterns.italicUnderscore.ReplaceAllString(result, "$1")

	// Inline code after emphasis, to avoid processing * inside code spans.
	result = patterns.inlineCode.ReplaceAllString(result, "$1")

	if opts.SkipImages {
		result = patterns.image.ReplaceAllString(result, "")
	} else {
		result = patterns.image.ReplaceAllString(result, "$1")
	}

	result = patterns.link.ReplaceAllString(result, "$1")
	result = patterns.html.ReplaceAllString(result, "")
	result = patterns.blockquote.ReplaceAllString(result, "")

	if opts.StripListLeaders {
		result = patterns.listLeader.ReplaceAllString(result, "")
	}

	result = patterns.hr.ReplaceAllString(result, "")
	result = patterns.footnote.ReplaceAllString(result, "")
	result = patterns.refLink.ReplaceAllString(result, "")
	result = patterns.multipleNewlines.ReplaceAllString(result, "\n\n")

	return result
}
