package fileserver

import (
	"fmt"
	"html"
	"net/url"
	"os"
	"sort"
	"strings"
)

// FormatSize renders a byte count in the largest unit that keeps it under 1024.
func FormatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	size := float64(n) / 1024
	for _, unit := range []string{"KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}

type listingEntry struct {
	name  string
	isDir bool
	size  int64
}

// sortEntries puts directories first, then orders by name ignoring case.
func sortEntries(entries []listingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].isDir != entries[j].isDir {
			return entries[i].isDir
		}
		return strings.ToLower(entries[i].name) < strings.ToLower(entries[j].name)
	})
}

func readListing(dir string) ([]listingEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]listingEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, listingEntry{
			name:  de.Name(),
			isDir: info.IsDir(),
			size:  info.Size(),
		})
	}
	sortEntries(entries)
	return entries, nil
}

const listingHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Index of %[1]s</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%%; }
td { padding: 0.4em 0.8em; border-bottom: 1px solid #eee; }
td.size { text-align: right; color: #666; white-space: nowrap; }
a { text-decoration: none; }
</style>
</head>
<body>
<h1>Index of %[1]s</h1>
<table>
`

// renderListing builds the HTML index for urlPath. urlPath always begins
// and ends with "/".
func renderListing(urlPath string, entries []listingEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, listingHead, html.EscapeString(urlPath))

	if urlPath != "/" {
		b.WriteString(`<tr><td><a href="../">&#128193; ..</a></td><td class="size"></td></tr>` + "\n")
	}
	for _, e := range entries {
		href := url.PathEscape(e.name)
		label := html.EscapeString(e.name)
		if e.isDir {
			fmt.Fprintf(&b, "<tr><td><a href=\"%s/\">&#128193; %s/</a></td><td class=\"size\">-</td></tr>\n", href, label)
			continue
		}
		fmt.Fprintf(&b, "<tr><td><a href=\"%s\">&#128196; %s</a></td><td class=\"size\">%s</td></tr>\n", href, label, FormatSize(e.size))
	}

	b.WriteString("</table>\n</body>\n</html>\n")
	return b.String()
}
