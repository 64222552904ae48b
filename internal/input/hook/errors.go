package hook

import apperr "github.com/GriffinCanCode/autoui/internal/errors"

var errAlreadyStarted = apperr.New(apperr.InvalidState, "global input hook already started")
