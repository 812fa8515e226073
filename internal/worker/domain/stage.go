package domain

// Stage identifies one phase of the worker pipeline.
type Stage string

// Pipeline stages in execution order. FAILED_REPORTING is the branch taken
// when SYNTHESIZING, PROCESSING_AUDIO or UPLOADING fails terminally: it
// skips straight to the report with a failure outcome.
const (
	StageIdle            Stage = "IDLE"
	StageAuthenticating  Stage = "AUTHENTICATING"
	StageFetching        Stage = "FETCHING"
	StageSynthesizing    Stage = "SYNTHESIZING"
	StageProcessingAudio Stage = "PROCESSING_AUDIO"
	StageUploading       Stage = "UPLOADING"
	StageReporting       Stage = "REPORTING"
	StageFailedReporting Stage = "FAILED_REPORTING"
	StageCleanup         Stage = "CLEANUP"
)
