// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"bytes"
	"strconv"

	"github.com/diffeo/go-reviewapi/diffviewer"
	"github.com/diffeo/go-reviewapi/restdata"
	"github.com/diffeo/go-reviewapi/reviews"
	"github.com/diffeo/go-reviewapi/workflow"
)

// diffsNode serves the diff history of a review request.  Revision 0
// is the diff pending in the draft, visible only to those who can
// see the draft.
func (api *restAPI) diffsNode() *node {
	return (&node{
		name:       "diff",
		plural:     "diffs",
		uriName:    "diffs",
		key:        "diff_revision",
		keyPattern: "[0-9]+",
		kind:       reviews.KindDiffSet,
		fields: fieldList(
			attrs("id", "name", "revision", "timestamp"),
			[]field{
				{name: "basedir", value: func(c *call, obj reviews.Object) (interface{}, error) {
					return obj.(*reviews.DiffSet).BaseDir, nil
				}},
				{name: "repository", value: func(c *call, obj reviews.Object) (interface{}, error) {
					return api.Service.Store.Repository(obj.(*reviews.DiffSet).RepositoryID)
				}},
			},
		),
		listMethods: []string{"GET", "POST"},
		itemMethods: []string{"GET"},
		itemTypes:   []string{restdata.PatchMediaType},
		title: func(obj reviews.Object) string {
			return "Diff r" + strconv.Itoa(obj.(*reviews.DiffSet).Revision)
		},
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			all, err := api.Service.DiffSets(c.reviewRequest())
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(all), pg)
		},
		create: func(c *call, p *restdata.Payload) (interface{}, error) {
			f := p.Files["path"]
			if f == nil {
				return nil, reviews.InvalidField("path", "This field is required")
			}
			basedir, _ := p.String("basedir")
			ds, err := api.Service.UploadDiff(c.ctx, c.principal, c.reviewRequest(), workflow.DiffUpload{
				Name:    f.Filename,
				Data:    f.Data,
				BaseDir: basedir,
			})
			if err != nil {
				return nil, err
			}
			return created{ds}, nil
		},
		lookup: func(c *call, key string) (reviews.Object, error) {
			revision, err := parseID(key, reviews.KindDiffSet)
			if err != nil {
				return nil, err
			}
			if revision != 0 {
				return api.Service.DiffSetByRevision(c.reviewRequest(), revision)
			}
			d, err := api.Service.Draft(c.principal, c.reviewRequest())
			if err != nil {
				return nil, err
			}
			if d.DiffSetID == 0 {
				return nil, reviews.ErrNotFound{Kind: reviews.KindDiffSet, Key: 0}
			}
			return api.Service.Store.DiffSet(d.DiffSetID)
		},
		render: func(c *call, obj reviews.Object, _ string) (interface{}, error) {
			ds := obj.(*reviews.DiffSet)
			files, err := api.Service.Store.FileDiffs(ds.ID)
			if err != nil {
				return nil, err
			}
			return &rawBody{
				contentType: restdata.PatchMediaType,
				filename:    diffviewer.PatchFilename(ds, c.reviewRequest().BugsClosed),
				data:        bytes.NewReader(diffviewer.Patch(files)),
			}, nil
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			ds := obj.(*reviews.DiffSet)
			return []string{
				"review_request_id", strconv.Itoa(ds.ReviewRequestID),
				"diff_revision", strconv.Itoa(ds.Revision),
			}, nil
		},
	}).add(api.fileDiffsNode())
}

func (api *restAPI) fileDiffsNode() *node {
	return (&node{
		name:        "file",
		plural:      "files",
		uriName:     "files",
		key:         "filediff_id",
		keyPattern:  "[0-9]+",
		kind:        reviews.KindFileDiff,
		fields:      attrs("id", "source_file", "dest_file", "source_revision", "dest_detail"),
		listMethods: []string{"GET"},
		itemMethods: []string{"GET"},
		itemTypes: []string{
			restdata.PatchMediaType,
			restdata.DiffDataJSONMediaType,
			restdata.DiffDataXMLMediaType,
		},
		title: func(obj reviews.Object) string {
			return obj.(*reviews.FileDiff).DestFile
		},
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			files, err := api.Service.Store.FileDiffs(c.diffSet().ID)
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(files), pg)
		},
		lookup: func(c *call, key string) (reviews.Object, error) {
			id, err := parseID(key, reviews.KindFileDiff)
			if err != nil {
				return nil, err
			}
			return api.Service.FileDiff(c.diffSet(), id)
		},
		render: func(c *call, obj reviews.Object, mediaType string) (interface{}, error) {
			fd := obj.(*reviews.FileDiff)
			if mediaType == restdata.PatchMediaType {
				return &rawBody{
					contentType: restdata.PatchMediaType,
					filename:    diffviewer.FilePatchFilename(fd),
					data:        bytes.NewReader(diffviewer.Patch([]*reviews.FileDiff{fd})),
				}, nil
			}
			data, err := api.Service.RenderFileDiff(c.diffSet(), fd, c.BoolParam("syntax-highlighting", false))
			if err != nil {
				return nil, err
			}
			return document{"diff_data": data}, nil
		},
		href: func(c *call, obj reviews.Object) ([]string, error) {
			fd := obj.(*reviews.FileDiff)
			ds := c.diffSet()
			if ds == nil || ds.ID != fd.DiffSetID {
				var err error
				if ds, err = api.Service.Store.DiffSet(fd.DiffSetID); err != nil {
					return nil, err
				}
			}
			return []string{
				"review_request_id", strconv.Itoa(ds.ReviewRequestID),
				"diff_revision", strconv.Itoa(ds.Revision),
				"filediff_id", strconv.Itoa(fd.ID),
			}, nil
		},
	}).add(&node{
		name:        "diff_comment",
		plural:      "diff_comments",
		uriName:     "diff-comments",
		listOnly:    true,
		listMethods: []string{"GET"},
		list: func(c *call, pg page) ([]reviews.Object, int, error) {
			var filter workflow.FileDiffCommentFilter
			var err error
			if filter.InterdiffRevision, err = c.IntParam("interdiff-revision", 0); err != nil {
				return nil, 0, err
			}
			if filter.Line, err = c.IntParam("line", 0); err != nil {
				return nil, 0, err
			}
			comments, err := api.Service.FileDiffComments(c.principal, c.fileDiff(), filter)
			if err != nil {
				return nil, 0, err
			}
			return pageOf(objects(comments), pg)
		},
	})
}
