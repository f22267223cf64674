package fix

import (
	"fmt"
	"strings"

	"github.com/AverEE0/lpfix/internal/payload"
)

// Fix names.
const (
	NameCreateNotificationsList = "create-notifications-list"
	NameFixBitrix24             = "fix-bitrix24"
	NameFixCSRFMiddleware       = "fix-csrf-middleware"
	NameRestoreRichTextEditor   = "restore-rich-text-editor"
)

// Replace literals for the CRM client and the CSRF middleware.
const (
	bitrix24PhoneOld = `payload.fields.PHONE = [{ VALUE: contactData.phone, VALUE_TYPE: 'WORK' }]`
	bitrix24PhoneNew = `(payload.fields as any).PHONE = [{ VALUE: contactData.phone, VALUE_TYPE: 'WORK' }]`

	csrfRequestOld = "  const { pathname, method } = request"
	csrfRequestNew = "  const pathname = request.nextUrl.pathname\n  const method = request.method"
)

// All returns every fix in registry order.
func All() []Fix {
	return []Fix{
		CreateNotificationsList(),
		FixBitrix24(),
		FixCSRFMiddleware(),
		RestoreRichTextEditor(),
	}
}

// Names returns fix names in registry order.
func Names() []string {
	fixes := All()
	names := make([]string, len(fixes))
	for i, f := range fixes {
		names[i] = f.Metadata().Name
	}
	return names
}

// Lookup finds a fix by name.
func Lookup(name string) (Fix, error) {
	for _, f := range All() {
		if f.Metadata().Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s (available: %s)", ErrUnknownFix, name, strings.Join(Names(), ", "))
}

// CreateNotificationsList writes the placeholder notifications list.
func CreateNotificationsList() *WriteFix {
	return NewWriteFix(Metadata{
		Name:        NameCreateNotificationsList,
		Description: "Write the placeholder NotificationsList component",
		Script:      "create-notifications-list.py",
		Target:      "components/notifications/notifications-list.tsx",
		Message:     "Created notifications-list.tsx",
	}, payload.MustGet(payload.NotificationsList))
}

// FixBitrix24 casts the CRM contact payload before assigning PHONE.
func FixBitrix24() *ReplaceFix {
	return NewReplaceFix(Metadata{
		Name:        NameFixBitrix24,
		Description: "Cast payload.fields before setting PHONE in the Bitrix24 client",
		Script:      "fix_bitrix24.py",
		Target:      "lib/bitrix24.ts",
		Message:     "File fixed successfully!",
	}, bitrix24PhoneOld, bitrix24PhoneNew)
}

// FixCSRFMiddleware reads pathname and method from the request explicitly.
func FixCSRFMiddleware() *ReplaceFix {
	return NewReplaceFix(Metadata{
		Name:        NameFixCSRFMiddleware,
		Description: "Read pathname from request.nextUrl in the CSRF middleware",
		Script:      "fix_csrf_middleware.py",
		Target:      "lib/csrf-middleware.ts",
		Message:     "File fixed successfully!",
	}, csrfRequestOld, csrfRequestNew)
}

// RestoreRichTextEditor writes the full RichTextEditor component.
func RestoreRichTextEditor() *WriteFix {
	return NewWriteFix(Metadata{
		Name:        NameRestoreRichTextEditor,
		Description: "Restore the RichTextEditor component",
		Script:      "restore_rich_text_editor.py",
		Target:      "components/ui/rich-text-editor.tsx",
		Message:     "File restored successfully!",
	}, payload.MustGet(payload.RichTextEditor))
}
