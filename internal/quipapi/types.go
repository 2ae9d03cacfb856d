package quipapi

// Folder is the parsed metadata of a remote folder. Child ids keep the
// order the server returned them in.
type Folder struct {
	ID        string
	Title     string
	ThreadIDs []string
	FolderIDs []string
}

// Thread is the parsed metadata of a remote document (a "thread" on the wire).
type Thread struct {
	ID          string
	Title       string
	Type        string
	UpdatedUsec int64
}

// folderResponse mirrors the wire shape. Newer servers list children as
// typed refs, older ones as flat id arrays; both appear in the wild and
// both are honored, children first.
type folderResponse struct {
	Folder struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"folder"`
	Children []struct {
		ThreadID string `json:"thread_id"`
		FolderID string `json:"folder_id"`
	} `json:"children"`
	ThreadIDs []string `json:"thread_ids"`
	FolderIDs []string `json:"folder_ids"`
}

func (r *folderResponse) toFolder(id string) *Folder {
	f := &Folder{
		ID:    r.Folder.ID,
		Title: r.Folder.Title,
	}
	if f.ID == "" {
		f.ID = id
	}
	for _, child := range r.Children {
		switch {
		case child.ThreadID != "":
			f.ThreadIDs = append(f.ThreadIDs, child.ThreadID)
		case child.FolderID != "":
			f.FolderIDs = append(f.FolderIDs, child.FolderID)
		}
	}
	f.ThreadIDs = append(f.ThreadIDs, r.ThreadIDs...)
	f.FolderIDs = append(f.FolderIDs, r.FolderIDs...)
	return f
}

type threadResponse struct {
	Thread struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Type        string `json:"type"`
		UpdatedUsec int64  `json:"updated_usec"`
	} `json:"thread"`
}

func (r *threadResponse) toThread(id string) *Thread {
	t := &Thread{
		ID:          r.Thread.ID,
		Title:       r.Thread.Title,
		Type:        r.Thread.Type,
		UpdatedUsec: r.Thread.UpdatedUsec,
	}
	if t.ID == "" {
		t.ID = id
	}
	return t
}
