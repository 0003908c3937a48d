package ofx

import (
	_ "embed"
	"sync"

	"github.com/lestrrat-go/ofx/sgml"
)

//go:embed dtd/ofx.dtd
var ofxDTDSource string

var (
	ofxDTDOnce sync.Once
	ofxDTD     *sgml.DTD
	ofxDTDErr  error
)

// DTD returns the bundled OFX 1.x grammar. It is parsed once and shared;
// callers must not modify it.
func DTD() (*sgml.DTD, error) {
	ofxDTDOnce.Do(func() {
		ofxDTD, ofxDTDErr = sgml.ParseDTDString("OFX", ofxDTDSource)
	})
	return ofxDTD, ofxDTDErr
}
