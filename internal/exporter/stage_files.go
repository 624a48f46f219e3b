package exporter

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fabdesk/backup-exporter/internal/model"
)

// defaultPhotoMime is used for job photos recorded without a MIME type.
const defaultPhotoMime = "image/jpeg"

// fileItem adapts a design file or job photo to the shared file-stage loop.
// subFolder keys the per-entity folder (design number or job id); path is
// where the bytes live on local disk.
type fileItem struct {
	label     string
	subFolder string
	path      string
	mimeType  string
	fileName  string
}

// runDesignFileStage uploads every stored design file under Design Files,
// grouped in per-design sub-folders named by design number.
func (p *Pipeline) runDesignFileStage(ctx context.Context, token string, rn *run, em *Emitter) error {
	files, err := p.store.CRM().ListDesignFiles(ctx, rn.accountID)
	if err != nil {
		em.Error(model.PhaseDesigns, "", err)
		return nil
	}
	if len(files) == 0 {
		return nil
	}

	items := make([]fileItem, 0, len(files))
	for _, f := range files {
		items = append(items, fileItem{
			label:     f.DesignNumber + "/" + f.FileName,
			subFolder: f.DesignNumber,
			path:      filepath.Join(p.filesRoot, rn.accountID, "designs", f.DesignID, f.FileName),
			mimeType:  f.MimeType,
			fileName:  f.FileName,
		})
	}

	return p.runFileStage(ctx, token, rn, em, model.PhaseDesigns, designsFolderName, items)
}

// runJobPhotoStage uploads every job photo under Job Photos, grouped in
// per-job sub-folders named by job id.
func (p *Pipeline) runJobPhotoStage(ctx context.Context, token string, rn *run, em *Emitter) error {
	photos, err := p.store.CRM().ListJobPhotos(ctx, rn.accountID)
	if err != nil {
		em.Error(model.PhasePhotos, "", err)
		return nil
	}
	if len(photos) == 0 {
		return nil
	}

	items := make([]fileItem, 0, len(photos))
	for _, ph := range photos {
		mime := ph.MimeType
		if mime == "" {
			mime = defaultPhotoMime
		}
		items = append(items, fileItem{
			label:     ph.JobID + "/" + ph.FileName,
			subFolder: ph.JobID,
			path:      filepath.Join(p.filesRoot, rn.accountID, "jobs", ph.JobID, ph.FileName),
			mimeType:  mime,
			fileName:  ph.FileName,
		})
	}

	return p.runFileStage(ctx, token, rn, em, model.PhasePhotos, photosFolderName, items)
}

// runFileStage reads each item from local disk and uploads it unchanged.
// The per-entity folder is resolved through the run cache inside the item
// boundary, so a resolution failure costs one item, not the stage.
func (p *Pipeline) runFileStage(ctx context.Context, token string, rn *run, em *Emitter, phase, folderName string, items []fileItem) error {
	em.Progress(phase, "", 0, len(items))

	folderID, err := rn.resolver.Resolve(ctx, token, folderName, rn.folderID)
	if err != nil {
		em.Error(phase, "", err)
		return nil
	}

	for i, item := range items {
		em.Progress(phase, item.label, i+1, len(items))

		subID, err := rn.resolver.ResolveCached(ctx, token, item.subFolder, folderID)
		if err != nil {
			em.Error(phase, item.label, err)
			continue
		}
		data, err := os.ReadFile(item.path)
		if err != nil {
			em.Error(phase, item.label, err)
			continue
		}
		if _, err := p.client.UploadFile(ctx, token, item.fileName, subID, item.mimeType, data); err != nil {
			em.Error(phase, item.label, err)
			continue
		}
		em.Exported(phase)
	}
	return nil
}
