package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrAccountInactive    ErrCode = "ACCOUNT_INACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"
	ErrNotSurveyOwner   ErrCode = "NOT_SURVEY_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"
	ErrActionForbidden  ErrCode = "ACTION_FORBIDDEN"

	// ─── Survey-specific ───────────────────────────────────────────────
	ErrTemplateNotPublished ErrCode = "TEMPLATE_NOT_PUBLISHED"
	ErrTemplateNotDraft     ErrCode = "TEMPLATE_NOT_DRAFT"
	ErrTemplateInvalid      ErrCode = "TEMPLATE_INVALID"
	ErrSurveyIncomplete     ErrCode = "SURVEY_INCOMPLETE"
	ErrSurveySubmitted      ErrCode = "SURVEY_SUBMITTED"
	ErrSurveyBusy           ErrCode = "SURVEY_BUSY"
	ErrSurveyOpenElsewhere  ErrCode = "SURVEY_OPEN_ELSEWHERE"
	ErrUnknownQuestion      ErrCode = "UNKNOWN_QUESTION"
	ErrNoPreviousSection    ErrCode = "NO_PREVIOUS_SECTION"
	ErrNoNextSection        ErrCode = "NO_NEXT_SECTION"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email atau kata sandi salah."
	case ErrAccountInactive:
		return "Akun Anda tidak aktif. Hubungi administrator."
	case ErrSessionInvalidated:
		return "Sesi Anda telah berakhir. Silakan login kembali."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrTokenExpired:
		return "Token autentikasi telah kedaluwarsa."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrPermissionDenied:
		return "Izin ditolak."
	case ErrNotSurveyOwner:
		return "Survei ini milik surveyor lain."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrConflict:
		return "Sumber daya sudah ada."
	case ErrDependencyExists:
		return "Data tidak dapat dihapus karena masih digunakan oleh data lain."
	case ErrActionForbidden:
		return "Tindakan ini tidak diperbolehkan."

	// ─── Survey-specific ───────────────────────────────────────────────
	case ErrTemplateNotPublished:
		return "Template kuesioner belum dipublikasikan."
	case ErrTemplateNotDraft:
		return "Template kuesioner tidak dalam status DRAFT."
	case ErrTemplateInvalid:
		return "Template kuesioner mengandung kesalahan."
	case ErrSurveyIncomplete:
		return "Masih ada pertanyaan wajib yang belum diisi."
	case ErrSurveySubmitted:
		return "Survei sudah dikirim dan tidak dapat diubah."
	case ErrSurveyBusy:
		return "Penyimpanan sebelumnya masih berlangsung."
	case ErrSurveyOpenElsewhere:
		return "Survei ini sedang dibuka di perangkat lain."
	case ErrUnknownQuestion:
		return "Kode pertanyaan tidak dikenal."
	case ErrNoPreviousSection:
		return "Sudah berada di bagian pertama."
	case ErrNoNextSection:
		return "Tidak ada bagian berikutnya."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "Unggah file diperlukan."
	case ErrUnsupportedFile:
		return "Jenis file tidak didukung."
	case ErrFileTooLarge:
		return "Ukuran file melebihi batas."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}

// ValidationMessage localizes a questionnaire validation message key. Messages
// that are not keys are returned unchanged.
func ValidationMessage(msg string) string {
	switch msg {
	case "required":
		return "Wajib diisi."
	default:
		return msg
	}
}

// LocalizeFields applies ValidationMessage to every entry of a field error map.
func LocalizeFields(fields map[string]string) map[string]string {
	if fields == nil {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = ValidationMessage(v)
	}
	return out
}
