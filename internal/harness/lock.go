package harness

import "sync"

// testLock serializes test requests for the whole process. Canned responses
// and fetch order live on a shared TestContext, so two requests executing at
// once would consume each other's responses.
var testLock sync.Mutex
