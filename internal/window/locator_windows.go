//go:build windows

package window

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	dwmapi = windows.NewLazySystemDLL("dwmapi.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsIconic                 = user32.NewProc("IsIconic")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	procDwmGetWindowAttribute    = dwmapi.NewProc("DwmGetWindowAttribute")
)

const dwmwaCloaked = 14

type winLocator struct{}

// New creates the Win32 window locator.
func New() Locator { return &winLocator{} }

func (l *winLocator) Resolve(titleSubstring string) (*Handle, error) {
	var candidates []*Handle

	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		visible, _, _ := procIsWindowVisible.Call(hwnd)
		if visible == 0 {
			return 1 // continue enumeration
		}
		title := windowText(hwnd)
		if title == "" || !matchesTitle(title, titleSubstring) {
			return 1
		}
		candidates = append(candidates, describe(hwnd, title))
		return 1
	})
	_, _, _ = procEnumWindows.Call(cb, 0)

	best := selectBest(candidates, titleSubstring)
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (l *winLocator) IsValid(h *Handle) bool {
	if h == nil || h.ID == 0 {
		return false
	}
	alive, _, _ := procIsWindow.Call(h.ID)
	if alive == 0 {
		return false
	}
	return windowText(h.ID) != ""
}

func describe(hwnd uintptr, title string) *Handle {
	h := &Handle{ID: hwnd, Title: title, Visible: true}

	var r struct{ left, top, right, bottom int32 }
	if ret, _, _ := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r))); ret != 0 {
		h.Rect = Rect{X: int(r.left), Y: int(r.top), W: int(r.right - r.left), H: int(r.bottom - r.top)}
	}

	iconic, _, _ := procIsIconic.Call(hwnd)
	h.Minimized = iconic != 0

	var cloaked uint32
	ret, _, _ := procDwmGetWindowAttribute.Call(hwnd, dwmwaCloaked,
		uintptr(unsafe.Pointer(&cloaked)), unsafe.Sizeof(cloaked))
	h.Cloaked = ret == 0 && cloaked != 0

	h.Process = processName(hwnd)
	return h
}

func windowText(hwnd uintptr) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func processName(hwnd uintptr) string {
	var pid uint32
	_, _, _ = procGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return ""
	}
	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(proc)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(proc, 0, &buf[0], &size); err != nil {
		return ""
	}
	full := windows.UTF16ToString(buf[:size])
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == '\\' || full[i] == '/' {
			return full[i+1:]
		}
	}
	return full
}
