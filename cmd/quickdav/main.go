// Command quickdav is a minimal WebDAV server over a local directory,
// using golang.org/x/net/webdav directly rather than this repo's own
// three-tier gateway. It exists for local smoke-testing against a plain
// directory, the way the teacher's cmd/server did against ./data.
package main

import (
	"flag"
	"log"
	"net/http"

	"golang.org/x/net/webdav"
)

func main() {
	dir := flag.String("dir", "./data", "directory to serve")
	addr := flag.String("addr", ":8080", "address to listen on")
	flag.Parse()

	davHandler := &webdav.Handler{
		FileSystem: webdav.Dir(*dir),
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				log.Printf("quickdav error [%s %s]: %v", r.Method, r.URL.Path, err)
			}
		},
	}

	mux := http.NewServeMux()
	mux.Handle("/", davHandler)

	log.Printf("quickdav serving %s on %s", *dir, *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal(err)
	}
}
