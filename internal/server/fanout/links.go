package fanout

import "regexp"

var (
	documentLink = regexp.MustCompile(`https?://docs\.google\.com/document/(?:u/\d+/)?d/([A-Za-z0-9_-]{10,})`)
	folderLink   = regexp.MustCompile(`https?://drive\.google\.com/drive/(?:u/\d+/)?folders/([A-Za-z0-9_-]{10,})`)
)

// ExtractDocumentIDs returns the ids of every document link in text, in
// order of first appearance.
func ExtractDocumentIDs(text string) []string {
	return extract(documentLink, text)
}

// ExtractFolderIDs returns the ids of every drive folder link in text, in
// order of first appearance.
func ExtractFolderIDs(text string) []string {
	return extract(folderLink, text)
}

func DocumentURL(id string) string {
	return "https://docs.google.com/document/d/" + id
}

func FolderURL(id string) string {
	return "https://drive.google.com/drive/folders/" + id
}

func FileURL(id string) string {
	return "https://drive.google.com/file/d/" + id
}

func extract(re *regexp.Regexp, text string) []string {
	var ids []string
	seen := map[string]bool{}
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if id := m[1]; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
