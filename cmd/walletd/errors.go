package main

import "errors"

var (
	errNoChannelLink    = errors.New("no lightning channel link configured")
	errNoOutgoingSender = errors.New("no outgoing multipart sender configured")
)
