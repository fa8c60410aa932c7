// Package keyboard implements the PS/2 keyboard driver.
//
// The Driver services keyboard interrupts: it reads one scancode per
// interrupt, decodes it, updates modifier state, translates it to ASCII,
// hands the resulting Event to an optional Handler and appends it to a
// bounded Queue. The queue drops its oldest event when full so the interrupt
// path never blocks.
//
// Controller wraps the 8042 command protocol (reset, enable, disable, LEDs,
// typematic rate). Every wait on the controller is a bounded poll that ends
// in ErrTimeout instead of hanging.
package keyboard
