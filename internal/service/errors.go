package service

import "errors"

var (
	errNoReadyOntology = errors.New("no ready ontology for this session, upload a document first")
	errUnknownMode     = errors.New("unknown chat mode")
)
