package handlers

import (
	"fmt"
	"html"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aksel-webserv/webserv/internal/httperr"
	"github.com/aksel-webserv/webserv/internal/httpmsg"
)

// listDirTemplate is the listing template path relative to webRoot.
const listDirTemplate = "list_dir.html"

// renderListing reads list_dir.html and substitutes {{content}} with
// one anchor per directory entry. With withDelete set, each file entry
// also carries a delete button posting JSON to /delete.
func renderListing(webRoot, requestPath, dirPath string, withDelete bool) (httpmsg.Response, error) {
	tplPath := path.Join(webRoot, listDirTemplate)
	tpl, err := os.ReadFile(tplPath)
	if err != nil {
		return httpmsg.Response{}, fmt.Errorf("%w: %v", httperr.ErrTemplateMissing, err)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return httpmsg.Response{}, classifyFSError(err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var sb strings.Builder
	base := strings.TrimSuffix(requestPath, "/")
	for _, e := range entries {
		name := html.EscapeString(e.Name())
		href := html.EscapeString(base + "/" + e.Name())

		sb.WriteString(`<a href="`)
		sb.WriteString(href)
		sb.WriteString(`">`)
		sb.WriteString(name)
		sb.WriteString(`</a>`)

		if withDelete && !e.IsDir() {
			sb.WriteString(fmt.Sprintf(
				`<button onclick='fetch(%q,{method:"POST",body:JSON.stringify({path:%q})})'>delete</button>`,
				"/delete", e.Name()))
		}
		sb.WriteString("<br>\n")
	}

	body := strings.ReplaceAll(string(tpl), "{{content}}", sb.String())

	resp := httpmsg.Response{Status: 200, Body: []byte(body)}
	resp.Set("Content-Type", "text/html")
	resp.ContentLength()
	return resp, nil
}
